package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"permitleads_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultQueue = "crawl"

// A crawl-all enqueued while another is pending is dropped.
const crawlAllUniqueness = 30 * time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

// CrawlScheduler enqueues crawl work for the worker.
type CrawlScheduler interface {
	EnqueueCrawlAll(ctx context.Context) error
	EnqueueCrawlSource(ctx context.Context, sourceID uuid.UUID) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueCrawlAll(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewCrawlAllTask(), asynq.Queue(c.queue), asynq.Unique(crawlAllUniqueness))
	return err
}

func (c *Client) EnqueueCrawlSource(ctx context.Context, sourceID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCrawlSourceTask(CrawlSourcePayload{SourceID: sourceID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(2))
	return err
}

// RedisOptions parses a redis:// or rediss:// URL for go-redis clients that
// share the scheduler's Redis, such as the geocode cache.
func RedisOptions(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := RedisOptions(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return defaultQueue
}

var _ CrawlScheduler = (*Client)(nil)
