// Package jsoncodec is the JSON codec used for API responses, cached
// snapshots and CLI output. It is backed by sonic in std-compatible mode
// so map keys stay sorted and output matches encoding/json.
package jsoncodec

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Serializer plugs the codec into Echo (c.JSON / c.Bind).
type Serializer struct{}

// Serialize implements echo.JSONSerializer.
func (Serializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := defaultConfig.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize implements echo.JSONSerializer.
func (Serializer) Deserialize(c echo.Context, i interface{}) error {
	err := defaultConfig.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Syntax error: "+err.Error()).SetInternal(err)
	}
	return nil
}
