//go:build !sonic

package collector

import (
	"github.com/goccy/go-json"
)

// for imroc/req and the index decoder
var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
