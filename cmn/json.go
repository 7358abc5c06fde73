package cmn

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is the process-wide codec used for every wire body (§6). Configured
// once here so every package decodes/encodes with the same settings instead
// of each reaching for encoding/json directly.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MustMarshal panics on encode failure — only ever called on values this
// process just constructed, where a marshal error means a programming bug.
func MustMarshal(v interface{}) []byte {
	b, err := JSON.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
