package policy

import "net/http"

// GRPCServiceName is the fully qualified name of the gRPC user service.
const GRPCServiceName = "usersvc.v1.UserService"

// HTTPRules is the access table of the REST API.
func HTTPRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Pattern: "/api/users", Requirement: Public},
		{Method: http.MethodPost, Pattern: "/api/users/verify", Requirement: Public},
		{Method: http.MethodPost, Pattern: "/api/auth/login", Requirement: Public},
		{Method: http.MethodGet, Pattern: "/healthz", Requirement: Public},
		{Method: AnyMethod, Pattern: "/**", Requirement: Authenticated},
	}
}

// GRPCRules is the access table of the gRPC service. gRPC calls are all
// evaluated with method POST and the full method name as the path.
func GRPCRules() []Rule {
	svc := "/" + GRPCServiceName + "/"
	return []Rule{
		{Method: http.MethodPost, Pattern: svc + "Ping", Requirement: Public},
		{Method: http.MethodPost, Pattern: svc + "Register", Requirement: Public},
		{Method: http.MethodPost, Pattern: svc + "Login", Requirement: Public},
		{Method: AnyMethod, Pattern: "/**", Requirement: Authenticated},
	}
}
