package embedded

import (
	"embed"
	"io/fs"
)

//go:embed data/prompts/*
var promptFiles embed.FS

// Prompts holds the default prompt files at its root
var Prompts = mustSub(promptFiles, "data/prompts")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
