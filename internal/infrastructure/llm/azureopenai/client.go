package azureopenai

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unpulse/sg-report-tracker/internal/infrastructure/resilience"
)

// Client talks to an Azure OpenAI resource. One shared rate limiter
// serializes admission across every concurrent call so the resource's
// request quota is never exceeded by fan-out.
type Client struct {
	endpoint        string
	apiKey          string
	apiVersion      string
	chatDeployment  string
	embedDeployment string
	httpClient      *http.Client
	limiter         *rate.Limiter
	executor        *resilience.Executor
}

type Config struct {
	Endpoint          string
	APIKey            string
	APIVersion        string
	ChatDeployment    string
	EmbedDeployment   string
	RequestsPerMinute int
	Executor          *resilience.Executor
}

func New(cfg Config) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		endpoint:        strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:          cfg.APIKey,
		apiVersion:      cfg.APIVersion,
		chatDeployment:  cfg.ChatDeployment,
		embedDeployment: cfg.EmbedDeployment,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		limiter:         rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		executor:        cfg.Executor,
	}
}
