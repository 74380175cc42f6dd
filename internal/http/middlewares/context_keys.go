package middlewares

// CtxRequestID is the gin context key holding the request id.
const CtxRequestID = "request_id"
