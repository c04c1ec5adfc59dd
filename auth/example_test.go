package auth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/mcpgate/auth"
)

func ExamplePolicy_Authorize() {
	policy := auth.Policy{RequiredScopes: []string{"Mcp.Invoke"}}

	err := policy.Authorize(&auth.Claims{Scopes: []string{"Mcp.Invoke", "Other.Scope"}})
	fmt.Println("allowed:", err == nil)

	err = policy.Authorize(&auth.Claims{Scopes: []string{"Other.Scope"}})
	fmt.Println("denied:", auth.AsError(err).Code)
	// Output:
	// allowed: true
	// denied: insufficient_scope
}

func ExampleBearerToken() {
	token, _ := auth.BearerToken("Bearer eyJhbGciOiJSUzI1NiJ9.e30.c2ln")
	fmt.Println(token)

	_, err := auth.BearerToken("Basic Zm9vOmJhcg==")
	fmt.Println(auth.AsError(err).Code)
	// Output:
	// eyJhbGciOiJSUzI1NiJ9.e30.c2ln
	// missing_or_malformed
}

func ExampleGate_Middleware() {
	gate := auth.NewGate(auth.GateConfig{
		Enabled:   true,
		Validator: auth.NewJWTValidator(auth.ValidatorConfig{}, auth.NewStaticKeyResolver()),
	})
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))

	for _, path := range []string{"/healthz", "/mcp"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		fmt.Println(path, rec.Code)
		if c := rec.Header().Get("WWW-Authenticate"); c != "" {
			fmt.Println(c)
		}
	}
	// Output:
	// /healthz 200
	// /mcp 401
	// Bearer error="missing_or_malformed", error_description="Missing or malformed Authorization header"
}
