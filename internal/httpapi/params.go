package httpapi

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/gorilla/schema"

	"segmentd/internal/inferer"
)

const missingQueryParam = "Missing required parameter in the query string"

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// decodeQuery fills dst from the query string. Decoding failures are
// reported per parameter.
func decodeQuery(dst any, q url.Values) map[string]string {
	err := queryDecoder.Decode(dst, q)
	if err == nil {
		return nil
	}
	errs := map[string]string{}
	if multi, ok := err.(schema.MultiError); ok {
		for k, e := range multi {
			errs[k] = e.Error()
		}
		return errs
	}
	errs["query"] = err.Error()
	return errs
}

// requireChoice validates a required enumerated parameter.
func requireChoice(errs map[string]string, name, value string, choices []string) {
	switch {
	case value == "":
		errs[name] = missingQueryParam
	case !slices.Contains(choices, value):
		errs[name] = fmt.Sprintf("The value '%s' is not a valid choice for '%s'.", value, name)
	}
}

func requireValue(errs map[string]string, name, value string) {
	if value == "" {
		errs[name] = missingQueryParam
	}
}

var cropChoices = []string{inferer.CropOn, inferer.CropOff}
