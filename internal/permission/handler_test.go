package permission_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permission-management/internal/permission"
	permissionPostgres "github.com/frahmantamala/permission-management/internal/permission/postgres"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type responseEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    *permission.Permission `json:"data"`
	Errors  map[string]string      `json:"errors"`
}

var _ = Describe("Permission Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *permission.Handler
		slogger *slog.Logger
		student *auth.Principal
		teacher *auth.Principal
	)

	request := func(method string, p *auth.Principal, id int64, body interface{}) *http.Request {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, "/permisos", &buf)
		ctx := req.Context()
		if p != nil {
			ctx = auth.ContextWithPrincipal(ctx, p)
		}
		if id > 0 {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", strconv.FormatInt(id, 10))
			ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
		}
		return req.WithContext(ctx)
	}

	decode := func(w *httptest.ResponseRecorder) responseEnvelope {
		var env responseEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&env)).To(Succeed())
		return env
	}

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &permissionDatamodel.PermissionRequest{})).To(Succeed())

		ana := &userDatamodel.User{Name: "Ana", Surname: "Lopez", Email: "ana@school.edu", PasswordHash: "x", Role: "student", Active: true}
		tomas := &userDatamodel.User{Name: "Tomas", Surname: "Diaz", Email: "tomas@school.edu", PasswordHash: "x", Role: "teacher", Active: true}
		Expect(db.Create(ana).Error).NotTo(HaveOccurred())
		Expect(db.Create(tomas).Error).NotTo(HaveOccurred())
		student = &auth.Principal{UserID: ana.ID, Role: auth.RoleStudent}
		teacher = &auth.Principal{UserID: tomas.ID, Role: auth.RoleTeacher}

		repo := permissionPostgres.NewPermissionRepository(db, permissionPostgres.NewStatsReader(sqlx.NewDb(sqlDB, "sqlite3")))
		service := permission.NewService(repo, nil, internal.WorkflowConfig{}, slogger)
		handler = permission.NewHandler(service, internal.WorkflowConfig{})
	})

	create := func() *permission.Permission {
		w := httptest.NewRecorder()
		handler.CreatePermission(w, request(http.MethodPost, student, 0, map[string]string{
			"reason":     "Medical appointment",
			"start_date": "2025-03-03",
			"end_date":   "2025-03-04",
		}))
		Expect(w.Code).To(Equal(http.StatusCreated))
		env := decode(w)
		Expect(env.Success).To(BeTrue())
		return env.Data
	}

	It("should create a request with the requester joined", func() {
		p := create()
		Expect(p.Status).To(Equal(permission.StatusPending))
		Expect(p.StatusLabel).To(Equal("Pending"))
		Expect(p.Requester.Name).To(Equal("Ana"))
		Expect(p.StartDate).To(Equal("2025-03-03"))
	})

	It("should reject a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/permisos", bytes.NewBufferString("{not json"))
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), student))
		w := httptest.NewRecorder()

		handler.CreatePermission(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return field errors with 422", func() {
		w := httptest.NewRecorder()
		handler.CreatePermission(w, request(http.MethodPost, student, 0, map[string]string{
			"reason":     "Medical appointment",
			"start_date": "2025-03-04",
			"end_date":   "2025-03-03",
		}))
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(decode(w).Errors).To(HaveKey("end_date"))
	})

	It("should approve and then refuse a second review", func() {
		p := create()

		w := httptest.NewRecorder()
		handler.ReviewPermission(w, request(http.MethodPut, teacher, p.ID, map[string]string{"status": "approved"}))
		Expect(w.Code).To(Equal(http.StatusOK))
		env := decode(w)
		Expect(env.Message).To(Equal("Permission request approved successfully"))
		Expect(env.Data.Reviewer.Name).To(Equal("Tomas"))

		w = httptest.NewRecorder()
		handler.ReviewPermission(w, request(http.MethodPut, teacher, p.ID, map[string]string{"status": "rejected"}))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should word a rejection", func() {
		p := create()

		w := httptest.NewRecorder()
		handler.ReviewPermission(w, request(http.MethodPut, teacher, p.ID, map[string]string{"status": "rejected", "comment": "Exam day"}))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Message).To(Equal("Permission request rejected successfully"))
	})

	It("should reject a non-numeric id", func() {
		req := request(http.MethodGet, student, 0, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "abc")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		handler.GetPermission(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for an unknown request", func() {
		w := httptest.NewRecorder()
		handler.DeletePermission(w, request(http.MethodDelete, student, 42, nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should forbid deleting someone else's request", func() {
		p := create()

		w := httptest.NewRecorder()
		handler.DeletePermission(w, request(http.MethodDelete, teacher, p.ID, nil))
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})
})
