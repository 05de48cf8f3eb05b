package auth

import (
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("TokenService", func() {
	var (
		svc   *TokenService
		clock time.Time
		p     Principal
	)

	ginkgo.BeforeEach(func() {
		clock = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		svc = NewTokenService(TokenConfig{
			Secret:     []byte(testSecret),
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Now:        func() time.Time { return clock },
		})
		p = Principal{UserID: 42, Email: "ana@school.edu", Role: RoleDirector}
	})

	ginkgo.It("should round-trip the principal", func() {
		token, err := svc.Issue(p, TokenTypeAccess, svc.AccessTTL())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(strings.Count(token, ".")).To(gomega.Equal(2))

		claims, err := svc.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(*claims.Principal()).To(gomega.Equal(p))
		gomega.Expect(claims.Type).To(gomega.Equal(TokenTypeAccess))
		gomega.Expect(claims.Issuer).To(gomega.Equal(internal.DefaultJWTIssuer))
		gomega.Expect(claims.Audience).To(gomega.ContainElement(internal.DefaultJWTAudience))
		gomega.Expect(claims.TTL()).To(gomega.Equal(time.Hour))
		gomega.Expect(claims.ID).ToNot(gomega.BeEmpty())
	})

	ginkgo.It("should leave the email out of refresh tokens", func() {
		token, err := svc.Issue(p, TokenTypeRefresh, svc.RefreshTTL())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		claims, err := svc.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(claims.Email).To(gomega.BeEmpty())
		gomega.Expect(claims.TTL()).To(gomega.Equal(7 * 24 * time.Hour))
	})

	ginkgo.It("should give every token a distinct id", func() {
		a, _ := svc.Issue(p, TokenTypeAccess, time.Hour)
		b, _ := svc.Issue(p, TokenTypeAccess, time.Hour)
		gomega.Expect(a).ToNot(gomega.Equal(b))
	})

	ginkgo.It("should refuse to issue for an unknown role", func() {
		_, err := svc.Issue(Principal{UserID: 1, Role: "janitor"}, TokenTypeAccess, time.Hour)
		gomega.Expect(internal.KindOf(err)).To(gomega.Equal(internal.ErrorTypeInternal))
	})

	ginkgo.DescribeTable("malformed input",
		func(token string) {
			_, err := svc.Verify(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrMalformedToken))
		},
		ginkgo.Entry("empty", ""),
		ginkgo.Entry("one segment", "abc"),
		ginkgo.Entry("two segments", "abc.def"),
		ginkgo.Entry("four segments", "a.b.c.d"),
		ginkgo.Entry("empty middle segment", "abc..def"),
		ginkgo.Entry("empty signature", "abc.def."),
	)

	ginkgo.It("should report a token signed with another secret as an invalid signature", func() {
		other := NewTokenService(TokenConfig{Secret: []byte("another-secret-that-is-32-bytes-long!!"), Now: func() time.Time { return clock }})
		token, err := other.Issue(p, TokenTypeAccess, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidSignature))
	})

	ginkgo.It("should report any single changed payload character as an invalid signature", func() {
		token, err := svc.Issue(p, TokenTypeAccess, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		parts := strings.Split(token, ".")
		payload := []byte(parts[1])

		for i := range payload {
			mutated := append([]byte(nil), payload...)
			if mutated[i] == 'A' {
				mutated[i] = 'B'
			} else {
				mutated[i] = 'A'
			}

			_, err := svc.Verify(parts[0] + "." + string(mutated) + "." + parts[2])
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidSignature), "payload index %d", i)
		}
	})

	ginkgo.It("should report a swapped payload as an invalid signature", func() {
		student, _ := svc.Issue(Principal{UserID: 7, Role: RoleStudent}, TokenTypeAccess, time.Hour)
		director, _ := svc.Issue(p, TokenTypeAccess, time.Hour)

		s := strings.Split(student, ".")
		d := strings.Split(director, ".")
		forged := s[0] + "." + d[1] + "." + s[2]

		_, err := svc.Verify(forged)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidSignature))
	})

	ginkgo.It("should accept a token at its expiry second and reject it one second later", func() {
		token, _ := svc.Issue(p, TokenTypeAccess, time.Hour)

		clock = clock.Add(time.Hour - time.Second)
		_, err := svc.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		clock = clock.Add(time.Second)
		_, err = svc.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		clock = clock.Add(500 * time.Millisecond)
		_, err = svc.Verify(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		clock = clock.Add(500 * time.Millisecond)
		_, err = svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrExpiredToken))
	})

	ginkgo.It("should check the signature before expiry", func() {
		other := NewTokenService(TokenConfig{Secret: []byte("another-secret-that-is-32-bytes-long!!"), Now: func() time.Time { return clock }})
		token, _ := other.Issue(p, TokenTypeAccess, time.Minute)

		clock = clock.Add(time.Hour)
		_, err := svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidSignature))
	})

	ginkgo.It("should reject correctly signed tokens without an expiry", func() {
		claims := &Claims{
			UserID: 42,
			Role:   RoleDirector,
			Type:   TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  "42",
				Issuer:   internal.DefaultJWTIssuer,
				Audience: jwt.ClaimStrings{internal.DefaultJWTAudience},
				IssuedAt: jwt.NewNumericDate(clock),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrMalformedToken))
	})

	ginkgo.It("should reject tokens for another audience", func() {
		other := NewTokenService(TokenConfig{Secret: []byte(testSecret), Audience: "someone-else", Now: func() time.Time { return clock }})
		token, _ := other.Issue(p, TokenTypeAccess, time.Hour)

		_, err := svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrMalformedToken))
	})

	ginkgo.It("should reject a subject that does not match user_id", func() {
		claims := &Claims{
			UserID: 42,
			Role:   RoleDirector,
			Type:   TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    internal.DefaultJWTIssuer,
				Audience:  jwt.ClaimStrings{internal.DefaultJWTAudience},
				IssuedAt:  jwt.NewNumericDate(clock),
				ExpiresAt: jwt.NewNumericDate(clock.Add(time.Hour)),
			},
		}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

		_, err := svc.Verify(token)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrMalformedToken))
	})

	ginkgo.It("should distinguish token types", func() {
		refresh, _ := svc.Issue(p, TokenTypeRefresh, time.Hour)
		_, err := svc.VerifyType(refresh, TokenTypeAccess)
		gomega.Expect(err).To(gomega.MatchError(internal.ErrWrongTokenType))

		_, err = svc.VerifyType(refresh, TokenTypeRefresh)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	})
})
