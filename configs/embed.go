// Package configs provides the embedded configuration template for
// notecove. The template is embedded at build time so 'notecove config
// init' works in every distribution, source builds included.
package configs

import _ "embed"

// ConfigTemplate is the commented starter config written by
// 'notecove config init' to ~/.config/notecove/config.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
