// Package transport installs the net/http client as the default submission
// transport. Import it for its side effect:
//
//	import _ "github.com/reoring/goform/transport"
package transport

import (
	"github.com/reoring/goform"
	httptransport "github.com/reoring/goform/transport/http"
)

// init in a separate package to avoid an import cycle in root.
func init() {
	c, err := httptransport.New(httptransport.Config{})
	if err != nil {
		panic(err)
	}
	goform.SetDefaultTransport(c)
}
