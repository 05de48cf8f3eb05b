package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/permission-management/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("should keep matching a sentinel after WithCause", func() {
		err := internal.ErrPermissionNotFound.WithCause(errors.New("no rows"))

		Expect(errors.Is(err, internal.ErrPermissionNotFound)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeFalse())
		Expect(internal.ErrPermissionNotFound.Cause).To(BeNil())
		Expect(err.Error()).To(Equal("Permission request not found: no rows"))
	})

	It("should be found through fmt wrapping", func() {
		wrapped := fmt.Errorf("review: %w", internal.ErrAlreadyReviewed)

		appErr, ok := internal.IsAppError(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(internal.KindOf(wrapped)).To(Equal(internal.ErrorTypeInvalidState))
	})

	It("should classify foreign errors as internal", func() {
		_, ok := internal.IsAppError(errors.New("boom"))
		Expect(ok).To(BeFalse())
		Expect(internal.KindOf(errors.New("boom"))).To(Equal(internal.ErrorTypeInternal))
	})

	It("should flatten field errors keeping the first message", func() {
		appErr := internal.NewValidationFieldError("reason", "reason is required", internal.ErrCodeRequired).
			WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "reason", Message: "reason is required"},
				{Field: "reason", Message: "reason is too short"},
				{Field: "end_date", Message: "end_date is required"},
			}})

		Expect(appErr.FieldMap()).To(Equal(map[string]string{
			"reason":   "reason is required",
			"end_date": "end_date is required",
		}))
		Expect(appErr.GetDetailedMessage()).To(Equal("reason is required; reason is too short; end_date is required"))
		Expect(appErr.StatusCode).To(Equal(http.StatusUnprocessableEntity))
	})

	It("should have no field map without validation details", func() {
		Expect(internal.ErrNotOwner.FieldMap()).To(BeNil())
	})

	It("should not serialize the status or the cause", func() {
		raw, err := json.Marshal(internal.NewInternalError("failed to load", errors.New("secret dsn")))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring("secret dsn"))
		Expect(string(raw)).NotTo(ContainSubstring("500"))
		Expect(string(raw)).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
	})
})

var _ = Describe("Context helpers", func() {
	It("should carry the user id", func() {
		ctx := internal.ContextWithUserID(context.Background(), 7)
		Expect(internal.UserIDFromContext(ctx)).To(Equal(int64(7)))
		Expect(internal.UserIDFromContext(context.Background())).To(BeZero())
	})

	It("should fall back to a default timeout", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()
		_, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
	})
})
