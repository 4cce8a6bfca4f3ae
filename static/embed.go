package staticfiles

import (
	"embed"
	"io/fs"
)

//go:embed css/* js/* img/*
var embedded embed.FS

func EmbeddedFS() fs.FS {
	return embedded
}
