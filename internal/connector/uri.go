package connector

import (
	"fmt"
	"net/url"
	"strings"
)

// Credentials assembles a MongoDB connection URI from discrete fields,
// the shape DocumentDB-flavored configs hand over instead of a single
// connection string (AWS Secrets Manager credential rotation emits
// username/password/host/port/dbname separately).
type Credentials struct {
	Username   string
	Password   string
	Host       string
	Port       int
	Database   string
	DirectHost bool // when true, skip SRV/replica-set discovery (directConnection=true)
	TLS        bool
	TLSCAFile  string
}

// BuildConnectionURI assembles a mongodb:// URI from discrete
// credential fields, grounded on the DocumentDB credential-JSON
// handling the original tap's sample configs describe in tap.py's
// config_jsonschema (host/port/username/password/tls fields alongside
// a literal connection string option).
func BuildConnectionURI(c Credentials) (string, error) {
	if c.Host == "" {
		return "", fmt.Errorf("credentials missing host")
	}

	userinfo := ""
	if c.Username != "" {
		userinfo = url.UserPassword(c.Username, c.Password).String() + "@"
	}

	hostport := c.Host
	if c.Port != 0 {
		hostport = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}

	u := fmt.Sprintf("mongodb://%s%s/%s", userinfo, hostport, c.Database)

	var params []string
	if c.DirectHost {
		params = append(params, "directConnection=true")
	}
	if c.TLS {
		params = append(params, "tls=true")
		if c.TLSCAFile != "" {
			params = append(params, "tlsCAFile="+url.QueryEscape(c.TLSCAFile))
		}
	}
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}

	return u, nil
}
