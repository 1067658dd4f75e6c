package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crewledger/crewledger/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"crewledger"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type MatchingOptions struct {
	// Minimum 0-100 similarity for a fuzzy candidate to be considered.
	FuzzyThreshold int `env:"MATCH_FUZZY_THRESHOLD" envDefault:"80"`
	// Overall confidence below which a result always needs review.
	ReviewFloor float64 `env:"MATCH_REVIEW_FLOOR" envDefault:"60"`
	// Newly created identities below this confidence need review.
	NewEntityReviewFloor float64 `env:"MATCH_NEW_ENTITY_REVIEW_FLOOR" envDefault:"85"`
}

func (m *MatchingOptions) Validate() error {
	if m.FuzzyThreshold < 0 || m.FuzzyThreshold > 100 {
		return fmt.Errorf("MATCH_FUZZY_THRESHOLD must be in [0,100], got %d", m.FuzzyThreshold)
	}
	if m.ReviewFloor < 0 || m.ReviewFloor > 100 {
		return fmt.Errorf("MATCH_REVIEW_FLOOR must be in [0,100], got %v", m.ReviewFloor)
	}
	if m.NewEntityReviewFloor < m.ReviewFloor {
		return fmt.Errorf("MATCH_NEW_ENTITY_REVIEW_FLOOR (%v) must not be below MATCH_REVIEW_FLOOR (%v)",
			m.NewEntityReviewFloor, m.ReviewFloor)
	}
	return nil
}

type Configuration struct {
	Database DatabaseOptions
	Matching MatchingOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"text"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching configuration error: %w", err)
	}

	c.logger = logging.Setup(c.LogrusLogLevel(), c.LogFormat)
	c.Database.Opts = c.Database.ConnectionString()

	return nil
}
