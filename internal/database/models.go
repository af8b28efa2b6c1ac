package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrEmptySegment is returned for container chains with an empty name.
var ErrEmptySegment = errors.New("container chain has an empty segment")

// RootContainerID is the id of the catalog root container.
const RootContainerID int64 = 0

type ObjectType string

const (
	ObjectTypeFolder   ObjectType = "folder"
	ObjectTypeAudio    ObjectType = "audio"
	ObjectTypeImage    ObjectType = "image"
	ObjectTypeVideo    ObjectType = "video"
	ObjectTypePlaylist ObjectType = "playlist"
	ObjectTypeOther    ObjectType = "other"
)

// Object is one imported file.
type Object struct {
	ID         int64             `json:"id"`
	Path       string            `json:"path"`
	Name       string            `json:"name"`
	ParentPath string            `json:"parentPath"`
	Type       ObjectType        `json:"type"`
	MimeType   string            `json:"mimeType,omitempty"`
	Size       int64             `json:"size"`
	ModTime    time.Time         `json:"modTime"`
	FileHash   string            `json:"-"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// IsFile reports whether the object is a plain file rather than a folder.
func (o *Object) IsFile() bool {
	return o != nil && o.Type != ObjectTypeFolder
}

// Container is a node of the virtual tree.
type Container struct {
	ID         int64  `json:"id"`
	ParentID   int64  `json:"parentId"`
	Name       string `json:"name"`
	ChildCount int    `json:"childCount"`
	EntryCount int    `json:"entryCount"`
}

// Entry places an object in a container under a display title.
type Entry struct {
	ID          int64             `json:"id"`
	ContainerID int64             `json:"containerId"`
	ObjectID    int64             `json:"objectId"`
	OriginID    int64             `json:"originId"`
	Title       string            `json:"title"`
	Position    int               `json:"position"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ObjectPath  string            `json:"objectPath,omitempty"`
	ObjectType  ObjectType        `json:"objectType,omitempty"`
}

// PlaylistEntry is one resolved line of a playlist.
type PlaylistEntry struct {
	PlaylistID  int64
	ObjectID    int64
	ContainerID int64
	Title       string
	Position    int
}

// CatalogCounts summarizes catalog content.
type CatalogCounts struct {
	Objects    map[ObjectType]int `json:"objects"`
	Containers int                `json:"containers"`
	Entries    int                `json:"entries"`
}

// IndexStats describes the last indexer run.
type IndexStats struct {
	RunID         string    `json:"runId"`
	Scanned       int       `json:"scanned"`
	Imported      int       `json:"imported"`
	Unchanged     int       `json:"unchanged"`
	Playlists     int       `json:"playlists"`
	Removed       int64     `json:"removed"`
	Pruned        int64     `json:"pruned"`
	Errors        int       `json:"errors"`
	LastIndexed   time.Time `json:"lastIndexed"`
	IndexDuration string    `json:"indexDuration"`
}
