package http_test

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	api "github.com/tazhibayda/dailyjobs/internal/http"
	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/page"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"github.com/tazhibayda/dailyjobs/internal/repo"
	"github.com/tazhibayda/dailyjobs/internal/security"
)

type testEnv struct {
	T      *testing.T
	Mem    *repo.Memory
	Pub    *queue.Recorder
	Pages  *page.Registry
	Router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	security.Cost = 4

	km, err := security.NewEphemeralKeyManager("test")
	if err != nil {
		t.Fatal(err)
	}
	mem := repo.NewMemory()
	pub := &queue.Recorder{}
	idp := identity.NewLocal(mem, km, pub, "test.events")
	idp.PublicURL = "http://localhost:8080"

	pages := page.NewRegistry(page.Deps{
		Provider: idp,
		Records:  mem,
		Catalog: &catalog.Catalog{
			Companies:        []catalog.Entry{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}},
			Locations:        []catalog.Entry{{ID: "any", Name: "Any"}, {ID: "remote", Name: "Remote"}},
			JobTypes:         []catalog.Entry{{ID: "product", Name: "Product"}},
			ExperienceLevels: []catalog.Entry{{ID: "entry", Name: "Entry"}},
		},
		ContinueURL: "https://advaitlad.github.io/DailyJobs/",
		FilterDelay: 5 * time.Millisecond,
	}, time.Hour)
	t.Cleanup(pages.Stop)

	h := api.NewHandler(pages, idp, km, mem)
	return &testEnv{T: t, Mem: mem, Pub: pub, Pages: pages, Router: api.NewRouter(h)}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	e.Router.ServeHTTP(w, req)
	return w
}
