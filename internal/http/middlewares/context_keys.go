package middlewares

const (
	// CtxPrincipal holds the resolved user.User for the request.
	CtxPrincipal = "auth.principal"

	CtxRequestID = "request_id"
)
