// Package config resolves the supportdesk runtime configuration once at
// process start. Values layer from built-in defaults, then an optional TOML or
// YAML file, then the environment. The resulting Config is passed explicitly
// to every renderer so the page title and the document metadata always agree.
package config
