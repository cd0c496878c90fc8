package public

import "embed"

// Assets holds the selection UI served at the site root.
//
//go:embed index.html success.html style.css script.js
var Assets embed.FS
