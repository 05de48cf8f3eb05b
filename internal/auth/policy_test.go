package auth

import (
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Policies", func() {
	student := &Principal{UserID: 1, Role: RoleStudent}
	teacher := &Principal{UserID: 2, Role: RoleTeacher}
	director := &Principal{UserID: 3, Role: RoleDirector}

	ginkgo.It("requires a principal", func() {
		gomega.Expect(internal.KindOf(RequireAuthenticated(nil))).To(gomega.Equal(internal.ErrorTypeUnauthorized))
		gomega.Expect(RequireAuthenticated(student)).To(gomega.Succeed())
	})

	ginkgo.It("matches exact roles", func() {
		gomega.Expect(RequireRole(director, RoleDirector)).To(gomega.Succeed())
		gomega.Expect(RequireRole(teacher, RoleDirector)).To(gomega.MatchError(internal.ErrInsufficientRole))
	})

	ginkgo.It("matches any of several roles", func() {
		gomega.Expect(RequireAnyRole(teacher, ElevatedRoles...)).To(gomega.Succeed())
		gomega.Expect(RequireAnyRole(student, ElevatedRoles...)).To(gomega.MatchError(internal.ErrInsufficientRole))
	})

	ginkgo.It("admits owners and elevated roles", func() {
		gomega.Expect(RequireOwnershipOrElevated(student, 1, ElevatedRoles...)).To(gomega.Succeed())
		gomega.Expect(RequireOwnershipOrElevated(teacher, 1, ElevatedRoles...)).To(gomega.Succeed())
		gomega.Expect(RequireOwnershipOrElevated(student, 9, ElevatedRoles...)).To(gomega.MatchError(internal.ErrNotOwner))
		gomega.Expect(RequireOwnershipOrElevated(teacher, 9)).To(gomega.MatchError(internal.ErrNotOwner))
	})

	ginkgo.It("classifies elevated roles", func() {
		gomega.Expect(RoleStudent.IsElevated()).To(gomega.BeFalse())
		gomega.Expect(RoleTeacher.IsElevated()).To(gomega.BeTrue())
		gomega.Expect(RoleDirector.IsElevated()).To(gomega.BeTrue())
		_, err := ParseRole("admin")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

var _ = ginkgo.Describe("RBACAuthorization middleware", func() {
	var ra *RBACAuthorization

	ginkgo.BeforeEach(func() {
		ra = NewRBACAuthorization(nil)
	})

	serve := func(mw func(http.Handler) http.Handler, p *Principal, path string) int {
		r := chi.NewRouter()
		r.With(mw).Get("/usuarios/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if p != nil {
			req = req.WithContext(ContextWithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	ginkgo.It("returns 401 without a principal", func() {
		gomega.Expect(serve(ra.RequireAuthenticated(), nil, "/usuarios/1")).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("returns 403 for a student on an elevated route", func() {
		gomega.Expect(serve(ra.RequireElevated(), &Principal{UserID: 1, Role: RoleStudent}, "/usuarios/1")).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(ra.RequireElevated(), &Principal{UserID: 2, Role: RoleTeacher}, "/usuarios/1")).To(gomega.Equal(http.StatusNoContent))
	})

	ginkgo.It("lets a user reach their own record only", func() {
		p := &Principal{UserID: 5, Role: RoleStudent}
		gomega.Expect(serve(ra.RequireOwnerOrElevated("id"), p, "/usuarios/5")).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(serve(ra.RequireOwnerOrElevated("id"), p, "/usuarios/6")).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(ra.RequireOwnerOrElevated("id"), p, "/usuarios/abc")).To(gomega.Equal(http.StatusBadRequest))
	})
})
