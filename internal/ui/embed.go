package ui

import "embed"

// Assets holds the static files served next to the rendered document.
//
//go:embed static/*
var Assets embed.FS
