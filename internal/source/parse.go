package source

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// ParseClientApplicationID splits a session's client application id such as
// "JDBC 3.13.30" into driver name and version. Anything after the second
// whitespace-separated field is ignored; a missing version yields "".
func ParseClientApplicationID(id string) (driver, version string) {
	fields := strings.Fields(id)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

// ParseClientVersionInfo decodes the JSON array returned by
// SYSTEM$CLIENT_VERSION_INFO(). The nearing-end-of-support version is used
// as the end-of-support boundary. Empty strings and nulls become absent.
// Entries without a client application id are skipped.
func ParseClientVersionInfo(data []byte) ([]compliance.SupportInfo, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid client version info: not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if doc.Type == gjson.String {
		// VARIANT columns sometimes come back as a JSON-encoded string.
		inner := doc.String()
		if !gjson.Valid(inner) {
			return nil, fmt.Errorf("invalid client version info: embedded string is not JSON")
		}
		doc = gjson.Parse(inner)
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("invalid client version info: expected array, got %s", doc.Type)
	}

	var out []compliance.SupportInfo
	doc.ForEach(func(_, v gjson.Result) bool {
		driver := field(v, "clientAppId")
		if driver == "" {
			return true
		}
		out = append(out, compliance.SupportInfo{
			Driver:       driver,
			MinSupported: field(v, "minimumSupportedVersion"),
			EndOfSupport: field(v, "minimumNearingEndOfSupportVersion"),
			Recommended:  field(v, "recommendedVersion"),
		})
		return true
	})
	return out, nil
}

func field(v gjson.Result, name string) string {
	r := v.Get(name)
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(r.String())
}
