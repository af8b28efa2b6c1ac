package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"media-catalog/internal/layout"
)

// metaAliases lets --meta use short names for the well-known keys.
var metaAliases = map[string]string{
	"title":       layout.KeyTitle,
	"artist":      layout.KeyArtist,
	"album":       layout.KeyAlbum,
	"albumartist": layout.KeyAlbumArtist,
	"date":        layout.KeyDate,
	"year":        layout.KeyYear,
	"genre":       layout.KeyGenre,
	"description": layout.KeyDescription,
	"track":       layout.KeyTrackNumber,
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var kind, title, dir string
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the containers an item would be filed under",
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := ctx.builder()
			if err != nil {
				return err
			}
			item, err := classifyItem(kind, title, dir, meta)
			if err != nil {
				return err
			}

			var rows [][]string
			if item.Kind == layout.KindPlaylist {
				for _, c := range builder.PlaylistChains(item) {
					rows = append(rows, []string{layout.RulePlaylist, c.String(), item.DisplayTitle()})
				}
			} else {
				for _, p := range builder.Layout(item) {
					rows = append(rows, []string{p.Rule, p.Chain.String(), p.Title})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No placements")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Rule", "Container", "Title"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(layout.KindAudio), "Item kind: audio, video, image or playlist")
	cmd.Flags().StringVar(&title, "title", "", "File name without extension")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory below the media root, e.g. Music/Rock")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "Metadata as key=value (title, artist, album, date, genre, track, ...)")
	return cmd
}

func classifyItem(kind, title, dir string, meta map[string]string) (layout.Item, error) {
	k := layout.Kind(strings.ToLower(kind))
	switch k {
	case layout.KindAudio, layout.KindVideo, layout.KindImage, layout.KindPlaylist:
	default:
		return layout.Item{}, fmt.Errorf("unknown kind %q", kind)
	}

	rec := make(layout.Record, len(meta))
	for key, value := range meta {
		if full, ok := metaAliases[strings.ToLower(key)]; ok {
			key = full
		}
		rec[key] = value
	}

	var dirs []string
	if dir = strings.Trim(filepath.ToSlash(dir), "/"); dir != "" {
		dirs = strings.Split(dir, "/")
	}
	return layout.Item{Kind: k, Title: title, Dirs: dirs, Meta: rec}, nil
}
