package internal_test

import (
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	valid := func() *internal.Config {
		cfg := &internal.Config{
			Database: internal.DatabaseConfig{Source: "postgres://localhost/permisos"},
			Security: internal.SecurityConfig{JWTSecret: strings.Repeat("s", 32)},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	Describe("ApplyDefaults", func() {
		It("should fill every zero value", func() {
			cfg := &internal.Config{}
			cfg.ApplyDefaults()

			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Server.RequestTimeout).To(Equal(5 * time.Second))
			Expect(cfg.Security.JWTIssuer).To(Equal(internal.DefaultJWTIssuer))
			Expect(cfg.Security.AccessTokenDuration).To(Equal(time.Hour))
			Expect(cfg.Security.RefreshTokenDuration).To(Equal(7 * 24 * time.Hour))
			Expect(cfg.Workflow.ReasonMinLength).To(Equal(10))
			Expect(cfg.Workflow.ReasonMaxLength).To(Equal(500))
			Expect(cfg.Workflow.MaxPageSize).To(Equal(100))
			Expect(cfg.Observability.Logging.Level).To(Equal("info"))
		})

		It("should keep explicit values", func() {
			cfg := &internal.Config{Server: internal.ServerConfig{Port: 9090}}
			cfg.ApplyDefaults()
			Expect(cfg.Server.Port).To(Equal(9090))
		})

		It("should only default the metrics path when enabled", func() {
			cfg := &internal.Config{}
			cfg.ApplyDefaults()
			Expect(cfg.Observability.Metrics.Path).To(BeEmpty())

			cfg.Observability.Metrics.Enabled = true
			cfg.ApplyDefaults()
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
		})
	})

	Describe("Validate", func() {
		It("should accept a complete configuration", func() {
			Expect(valid().Validate()).To(Succeed())
		})

		It("should require the database source and a long secret", func() {
			cfg := valid()
			cfg.Database.Source = ""
			cfg.Security.JWTSecret = "short"

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Source"))
			Expect(err.Error()).To(ContainSubstring("JWTSecret"))
		})

		It("should refuse more idle than open connections", func() {
			cfg := valid()
			cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
		})

		It("should refuse a read timeout below the header timeout", func() {
			cfg := valid()
			cfg.Server.ReadTimeout = time.Second
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("read_timeout")))
		})

		It("should refuse an inverted reason range", func() {
			cfg := valid()
			cfg.Workflow.ReasonMaxLength = 5
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("ReasonMaxLength")))
		})

		It("should refuse an unknown log level", func() {
			cfg := valid()
			cfg.Observability.Logging.Level = "verbose"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("Level")))
		})
	})

	Describe("LoadConfigFromEnv", func() {
		It("should read the environment", func() {
			setEnv("PORT", "9191")
			setEnv("DATABASE_URL", "postgres://db/permisos")
			setEnv("JWT_SECRET", strings.Repeat("k", 40))
			setEnv("ACCESS_TOKEN_DURATION", "30m")
			setEnv("METRICS_ENABLED", "false")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(9191))
			Expect(cfg.Database.GetDSN()).To(Equal("postgres://db/permisos"))
			Expect(cfg.Security.AccessTokenDuration).To(Equal(30 * time.Minute))
			Expect(cfg.Observability.Metrics.Enabled).To(BeFalse())
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should ignore unparsable numbers", func() {
			setEnv("PORT", "eighty")
			setEnv("BCRYPT_COST", "")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Security.BCryptCost).To(Equal(10))
		})
	})
})
