package database

import (
	"path/filepath"
	"strings"

	"media-catalog/internal/layout"
)

var layoutKinds = map[ObjectType]layout.Kind{
	ObjectTypeAudio:    layout.KindAudio,
	ObjectTypeVideo:    layout.KindVideo,
	ObjectTypeImage:    layout.KindImage,
	ObjectTypePlaylist: layout.KindPlaylist,
}

// LayoutItem converts the object into the input of the layout rules. root
// is the media directory the object was imported from; the directories
// between root and the object become Item.Dirs. ok is false for objects no
// layout rule handles.
func (o *Object) LayoutItem(root string) (item layout.Item, ok bool) {
	if !o.IsFile() {
		return layout.Item{}, false
	}
	kind, ok := layoutKinds[o.Type]
	if !ok {
		return layout.Item{}, false
	}

	var dirs []string
	if rel, err := filepath.Rel(root, o.ParentPath); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		dirs = strings.Split(filepath.ToSlash(rel), "/")
	}

	name := o.Name
	if name == "" {
		name = filepath.Base(o.Path)
	}

	return layout.Item{
		Kind:    kind,
		Title:   strings.TrimSuffix(name, filepath.Ext(name)),
		Dirs:    dirs,
		ModTime: o.ModTime,
		Meta:    layout.Record(o.Metadata),
	}, true
}
