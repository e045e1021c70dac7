package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/dgellow/login-front/internal/idp"
)

var errAlreadyNavigated = errors.New("response already redirected")

// redirectNavigator navigates by answering the request with a 302
type redirectNavigator struct {
	w         http.ResponseWriter
	r         *http.Request
	navigated bool
}

var _ idp.Navigator = (*redirectNavigator)(nil)

func newRedirectNavigator(w http.ResponseWriter, r *http.Request) *redirectNavigator {
	return &redirectNavigator{w: w, r: r}
}

func (n *redirectNavigator) Navigate(_ context.Context, target string) error {
	if n.navigated {
		return errAlreadyNavigated
	}
	n.navigated = true
	http.Redirect(n.w, n.r, target, http.StatusFound)
	return nil
}
