package ingest

import "fmt"

type FetchErrorKind string

const (
	KindAuth      FetchErrorKind = "auth"
	KindRateLimit FetchErrorKind = "rate_limit"
	KindNetwork   FetchErrorKind = "network"
	KindDecode    FetchErrorKind = "decode"
)

// FetchError classifies a failed upstream fetch. It is recorded per refresh
// job and never aborts sibling jobs.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func classifyStatus(code int) FetchErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 429:
		return KindRateLimit
	default:
		return KindNetwork
	}
}
