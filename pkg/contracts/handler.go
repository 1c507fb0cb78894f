package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by the gateway's HTTP surfaces (booking request
// sessions, resource listings) so the application can assemble them behind
// one middleware chain without knowing their routes.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
