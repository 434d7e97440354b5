//go:build sonic

package collector

import (
	"github.com/bytedance/sonic"
)

// for imroc/req and the index decoder
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
