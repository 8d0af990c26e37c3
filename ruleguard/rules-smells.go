package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value can be one condition.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func errorWrapping(m dsl.Matcher) {
	m.Match(`errors.New(fmt.Sprintf($*args))`).
		Report(`use fmt.Errorf instead of errors.New(fmt.Sprintf(...))`).
		Suggest(`fmt.Errorf($args)`)

	m.Match(`$err == $target`).
		Where(m["err"].Type.Is(`error`) && m["target"].Text.Matches(`^Err[A-Z]`)).
		Report(`sentinel errors may be wrapped; use errors.Is($err, $target)`).
		Suggest(`errors.Is($err, $target)`)
}

// requestScope keeps request handling bound to the caller's context.
func requestScope(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().PkgPath.Matches(`/internal/(domain|api)/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`request-scoped code must use the caller's context`)

	m.Match(`time.Now().Sub($t)`).
		Report(`use time.Since($t)`).
		Suggest(`time.Since($t)`)
}

// envelopes makes sure every endpoint reply is a JSON document.
func envelopes(m dsl.Matcher) {
	m.Match(`http.Error($w, $*_)`).
		Where(m.File().PkgPath.Matches(`/internal/api/handlers$`) && !m.File().Name.Matches(`^helpers\.go$`)).
		Report(`endpoint replies must be JSON; use writeJSON, writeError or writeRPCError`)

	m.Match(`$_, _ := json.Marshal($_)`, `$_, _ = json.Marshal($_)`).
		Report(`json.Marshal error ignored`)
}
