// Package docs embeds the published API contracts of the pricing service.
package docs

import _ "embed"

// OpenAPI is the HTTP contract
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI is the event contract
//
//go:embed asyncapi.yaml
var AsyncAPI []byte
