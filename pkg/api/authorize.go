package api

import (
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tidwall/gjson"

	"github.com/keygate/keygate/pkg/keys"
)

// tokenFromBody falls back to the JSON body when neither the header nor
// the query string carries a key. GraphQL clients tend to tuck it next
// to the query itself.
func tokenFromBody(r *http.Request, body []byte) string {
	if token := getAPIKey(r); token != "" {
		return token
	}
	return gjson.GetBytes(body, "api_key").String()
}

// AuthorizeGraphQL is a pure decision endpoint: it answers whether the
// presented key may run the presented query, without executing anything.
func (a *KeyGateAPI) AuthorizeGraphQL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := gjson.GetBytes(body, "query").String()
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	record, err := a.validator.Validate(r.Context(), tokenFromBody(r, body))
	if err != nil {
		a.denyRequest(w, r, err)
		return
	}

	if err := keys.AuthorizeGraphQL(record, query); err != nil {
		a.denyRequest(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"authorized": true})
}

// AuthorizeTopic answers whether the presented key may touch the named
// topic. Brokers call this before accepting a produce or consume.
func (a *KeyGateAPI) AuthorizeTopic(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	topic := gjson.GetBytes(body, "topic").String()
	if topic == "" {
		http.Error(w, "topic is required", http.StatusBadRequest)
		return
	}

	record, err := a.validator.Validate(r.Context(), tokenFromBody(r, body))
	if err != nil {
		a.denyRequest(w, r, err)
		return
	}

	if err := keys.AuthorizeTopic(record, topic); err != nil {
		a.denyRequest(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"authorized": true, "topic": topic})
}
