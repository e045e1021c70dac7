package fbsdk

import "sync"

const (
	// SDKScriptID is the element id of the Facebook JavaScript SDK
	SDKScriptID = "facebook-jssdk"
	// SDKScriptSrc is the Facebook JavaScript SDK, loaded with the page's scheme
	SDKScriptSrc = "//connect.facebook.net/en_US/sdk.js"
)

// Script is one external script element
type Script struct {
	ID  string
	Src string
}

// ScriptLoader collects the external scripts a page loads. An id is added
// at most once.
type ScriptLoader struct {
	mu      sync.Mutex
	scripts []Script
}

// Inject adds a script with id and src unless one with id already exists.
// It reports whether the script was added.
func (l *ScriptLoader) Inject(id, src string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.scripts {
		if s.ID == id {
			return false
		}
	}
	l.scripts = append(l.scripts, Script{ID: id, Src: src})
	return true
}

// Scripts returns the injected scripts in insertion order
func (l *ScriptLoader) Scripts() []Script {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Script(nil), l.scripts...)
}
