package server

import (
	_ "embed"
	"html/template"

	"github.com/dgellow/login-front/internal/fbsdk"
)

//go:embed templates/login.html
var loginPageTemplateHTML string

var loginPageTemplate = template.Must(template.New("login").Parse(loginPageTemplateHTML))

// LoginPageData represents the data for the login page
type LoginPageData struct {
	Name     string
	BaseURL  string
	Buttons  []LoginButton
	Facebook *FacebookPageConfig
	Scripts  []fbsdk.Script
}

// LoginButton is one sign in button. ID is the provider identifier: the
// client or app id, or the SAML href.
type LoginButton struct {
	Provider string
	ID       string
	Label    string
	Href     string
}

// FacebookPageConfig is passed to FB.init when the JS SDK is loaded
type FacebookPageConfig struct {
	AppID   string
	Version string
}
