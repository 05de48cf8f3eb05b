package permission

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/permission-management/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Module Suite")
}

type mockRepository struct {
	mu       sync.Mutex
	rows     map[int64]*permissionDatamodel.PermissionRequest
	nextID   int64
	lastList ListFilter
	statsFor *int64
	failWith error
}

func newMockRepository() *mockRepository {
	return &mockRepository{rows: map[int64]*permissionDatamodel.PermissionRequest{}, nextID: 1}
}

func (m *mockRepository) view(row *permissionDatamodel.PermissionRequest) *permissionDatamodel.PermissionView {
	return &permissionDatamodel.PermissionView{PermissionRequest: *row, RequesterName: "Ana", RequesterSurname: "Lopez"}
}

func (m *mockRepository) Create(ctx context.Context, p *permissionDatamodel.PermissionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	p.ID = m.nextID
	m.nextID++
	row := *p
	m.rows[p.ID] = &row
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*permissionDatamodel.PermissionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, internal.ErrPermissionNotFound
	}
	return m.view(row), nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]*permissionDatamodel.PermissionView, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = filter
	var out []*permissionDatamodel.PermissionView
	for _, row := range m.rows {
		if filter.RequesterID != nil && row.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != nil && row.Status != string(*filter.Status) {
			continue
		}
		out = append(out, m.view(row))
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) ListPending(ctx context.Context, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error) {
	st := StatusPending
	return m.List(ctx, ListFilter{Status: &st, Page: page})
}

func (m *mockRepository) Search(ctx context.Context, query string, requesterID *int64, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*permissionDatamodel.PermissionView
	for _, row := range m.rows {
		if requesterID != nil && row.RequesterID != *requesterID {
			continue
		}
		if strings.Contains(strings.ToLower(row.Reason), strings.ToLower(query)) {
			out = append(out, m.view(row))
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) Review(ctx context.Context, id, reviewerID int64, status Status, comment string, reviewedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Status != string(StatusPending) {
		return 0, nil
	}
	row.Status = string(status)
	row.ReviewerID = &reviewerID
	row.ReviewComment = comment
	row.ReviewedAt = &reviewedAt
	return 1, nil
}

func (m *mockRepository) Delete(ctx context.Context, id, requesterID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.RequesterID != requesterID || row.Status != string(StatusPending) {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *mockRepository) Stats(ctx context.Context, requesterID *int64) (*permissionDatamodel.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsFor = requesterID
	var s permissionDatamodel.Stats
	for _, row := range m.rows {
		if requesterID != nil && row.RequesterID != *requesterID {
			continue
		}
		s.Total++
		switch Status(row.Status) {
		case StatusPending:
			s.Pending++
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		}
	}
	return &s, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

var _ = Describe("PermissionService", func() {
	var (
		svc       *Service
		repo      *mockRepository
		publisher *recordingPublisher
		ctx       context.Context
		now       time.Time

		student  = &auth.Principal{UserID: 1, Role: auth.RoleStudent}
		other    = &auth.Principal{UserID: 4, Role: auth.RoleStudent}
		teacher  = &auth.Principal{UserID: 2, Role: auth.RoleTeacher}
		director = &auth.Principal{UserID: 3, Role: auth.RoleDirector}
	)

	validDTO := func() CreatePermissionDTO {
		return CreatePermissionDTO{Reason: "Medical appointment", StartDate: "2025-01-15", EndDate: "2025-01-16"}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
		repo = newMockRepository()
		publisher = &recordingPublisher{}
		svc = NewService(repo, publisher, internal.WorkflowConfig{}, nil)
		svc.SetClock(func() time.Time { return now })
	})

	Describe("Create", func() {
		It("files a pending request for the student", func() {
			p, err := svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(StatusPending))
			Expect(p.RequesterID).To(Equal(int64(1)))
			Expect(p.Days).To(Equal(2))
			Expect(p.ReviewerID).To(BeNil())
			Expect(p.RequestedAt).To(Equal(now))
			Expect(publisher.types()).To(ConsistOf(events.EventTypePermissionCreated))
		})

		It("trims the reason", func() {
			dto := validDTO()
			dto.Reason = "   Medical appointment   "
			p, err := svc.Create(ctx, student, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Reason).To(Equal("Medical appointment"))
		})

		It("accepts a single-day request", func() {
			dto := validDTO()
			dto.EndDate = dto.StartDate
			p, err := svc.Create(ctx, student, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Days).To(Equal(1))
		})

		It("is student-only", func() {
			_, err := svc.Create(ctx, teacher, validDTO())
			Expect(err).To(MatchError(internal.ErrInsufficientRole))
			Expect(repo.rows).To(BeEmpty())
		})

		It("rejects an end date before the start date", func() {
			dto := validDTO()
			dto.StartDate, dto.EndDate = "2025-01-16", "2025-01-15"
			_, err := svc.Create(ctx, student, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldMap()).To(HaveKey("end_date"))
			Expect(repo.rows).To(BeEmpty())
		})

		It("rejects a short reason and malformed dates", func() {
			_, err := svc.Create(ctx, student, CreatePermissionDTO{Reason: "short", StartDate: "15/01/2025", EndDate: ""})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldMap()).To(HaveKey("reason"))
			Expect(appErr.FieldMap()).To(HaveKey("start_date"))
			Expect(appErr.FieldMap()).To(HaveKey("end_date"))
		})

		It("does not fail when publishing fails", func() {
			publisher.err = errors.New("bus down")
			_, err := svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Review", func() {
		var created *Permission

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("approves a pending request", func() {
			p, err := svc.Review(ctx, teacher, created.ID, ReviewDTO{Status: "Approved", Comment: " ok "})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(StatusApproved))
			Expect(*p.ReviewerID).To(Equal(int64(2)))
			Expect(p.ReviewComment).To(Equal("ok"))
			Expect(*p.ReviewedAt).To(Equal(now))
			Expect(publisher.types()).To(ContainElement(events.EventTypePermissionReviewed))
		})

		It("refuses students", func() {
			_, err := svc.Review(ctx, student, created.ID, ReviewDTO{Status: "approved"})
			Expect(err).To(MatchError(internal.ErrInsufficientRole))
		})

		It("only accepts approved or rejected", func() {
			_, err := svc.Review(ctx, director, created.ID, ReviewDTO{Status: "pending"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldMap()).To(HaveKey("status"))
		})

		It("refuses a second review", func() {
			_, err := svc.Review(ctx, teacher, created.ID, ReviewDTO{Status: "rejected"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Review(ctx, director, created.ID, ReviewDTO{Status: "approved"})
			Expect(err).To(MatchError(internal.ErrAlreadyReviewed))
			Expect(repo.rows[created.ID].Status).To(Equal("rejected"))
		})

		It("reports unknown requests as not found", func() {
			_, err := svc.Review(ctx, teacher, 999, ReviewDTO{Status: "approved"})
			Expect(err).To(MatchError(internal.ErrPermissionNotFound))
		})

		It("lets exactly one concurrent reviewer win", func() {
			const reviewers = 8
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
				lost int
			)
			for i := 0; i < reviewers; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					status := "approved"
					if i%2 == 1 {
						status = "rejected"
					}
					_, err := svc.Review(ctx, director, created.ID, ReviewDTO{Status: status})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						wins++
					} else if errors.Is(err, internal.ErrAlreadyReviewed) {
						lost++
					}
				}(i)
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
			Expect(lost).To(Equal(reviewers - 1))
		})
	})

	Describe("Delete", func() {
		var created *Permission

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes the owner's pending request", func() {
			Expect(svc.Delete(ctx, student, created.ID)).To(Succeed())
			Expect(repo.rows).NotTo(HaveKey(created.ID))
			Expect(publisher.types()).To(ContainElement(events.EventTypePermissionDeleted))
		})

		It("refuses anyone but the owner", func() {
			Expect(svc.Delete(ctx, other, created.ID)).To(MatchError(internal.ErrNotOwner))
			Expect(svc.Delete(ctx, director, created.ID)).To(MatchError(internal.ErrNotOwner))
			Expect(repo.rows).To(HaveKey(created.ID))
		})

		It("refuses reviewed requests", func() {
			_, err := svc.Review(ctx, teacher, created.ID, ReviewDTO{Status: "approved"})
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Delete(ctx, student, created.ID)).To(MatchError(internal.ErrNotPending))
		})

		It("reports unknown requests as not found", func() {
			Expect(svc.Delete(ctx, student, 999)).To(MatchError(internal.ErrPermissionNotFound))
		})
	})

	Describe("Get", func() {
		It("lets the owner and elevated roles read", func() {
			created, err := svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Get(ctx, student, created.ID)
			Expect(err).NotTo(HaveOccurred())
			p, err := svc.Get(ctx, teacher, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Requester.Name).To(Equal("Ana"))

			_, err = svc.Get(ctx, other, created.ID)
			Expect(err).To(MatchError(internal.ErrNotOwner))
		})
	})

	Describe("scoping", func() {
		BeforeEach(func() {
			_, err := svc.Create(ctx, student, validDTO())
			Expect(err).NotTo(HaveOccurred())
			dto := validDTO()
			dto.Reason = "Family medical emergency"
			_, err = svc.Create(ctx, other, dto)
			Expect(err).NotTo(HaveOccurred())
		})

		It("forces students onto their own list", func() {
			someoneElse := int64(4)
			page, err := svc.List(ctx, student, ListFilter{RequesterID: &someoneElse, Page: pagination.Normalize(1, 20, 20, 100)})
			Expect(err).NotTo(HaveOccurred())
			Expect(*repo.lastList.RequesterID).To(Equal(int64(1)))
			Expect(page.Items).To(HaveLen(1))
		})

		It("lets teachers list everything", func() {
			page, err := svc.List(ctx, teacher, ListFilter{Page: pagination.Normalize(1, 20, 20, 100)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Pagination.Total).To(Equal(int64(2)))
		})

		It("keeps the pending queue for elevated roles", func() {
			_, err := svc.Pending(ctx, student, pagination.Normalize(1, 20, 20, 100))
			Expect(err).To(MatchError(internal.ErrInsufficientRole))

			page, err := svc.Pending(ctx, director, pagination.Normalize(1, 20, 20, 100))
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(2))
		})

		It("scopes stats for students only", func() {
			stats, err := svc.Stats(ctx, student)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(int64(1)))
			Expect(*repo.statsFor).To(Equal(int64(1)))

			stats, err = svc.Stats(ctx, director)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(int64(2)))
			Expect(stats.Pending).To(Equal(int64(2)))
			Expect(repo.statsFor).To(BeNil())
		})

		It("scopes search for students", func() {
			page, err := svc.Search(ctx, student, "medical", pagination.Normalize(1, 20, 20, 100))
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(1))

			page, err = svc.Search(ctx, teacher, "MEDICAL", pagination.Normalize(1, 20, 20, 100))
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(2))
		})

		It("requires a search term", func() {
			_, err := svc.Search(ctx, teacher, "  ", pagination.Normalize(1, 20, 20, 100))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldMap()).To(HaveKey("q"))
		})
	})

	Describe("ParseListFilter", func() {
		It("parses status and requester", func() {
			f, err := ParseListFilter("Approved", "7", pagination.Params{})
			Expect(err).NotTo(HaveOccurred())
			Expect(*f.Status).To(Equal(StatusApproved))
			Expect(*f.RequesterID).To(Equal(int64(7)))
		})

		It("reports each bad value", func() {
			_, err := ParseListFilter("done", "-1", pagination.Params{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldMap()).To(HaveKey("status"))
			Expect(appErr.FieldMap()).To(HaveKey("requester_id"))
		})
	})

	Describe("InclusiveDays", func() {
		It("counts both ends", func() {
			start := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
			Expect(InclusiveDays(start, start.AddDate(0, 0, 3))).To(Equal(4))
		})
	})
})
