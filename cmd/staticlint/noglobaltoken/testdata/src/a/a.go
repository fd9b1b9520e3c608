package a

var token string // want `package-level variable token holds a token`

var (
	AuthToken  = "Bearer abc" // want `package-level variable AuthToken holds a token`
	tokenPtr   *string        // want `package-level variable tokenPtr holds a token`
	tokenCount int
	baseURL    = "/api/blogs"
)

const tokenHeader = "Authorization"

type session struct {
	token string
}

func newSession(token string) *session {
	var localToken = token
	return &session{token: localToken}
}
