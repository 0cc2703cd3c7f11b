// Пакет share — выгрузка документа в S3-совместимое хранилище и выдача
// временной ссылки (presigned GET URL) для обмена.
//
// Ключ объекта: {prefix}{document_id}/{display_name}. Для MinIO и
// Localstack задаётся endpoint, адресация переключается на path-style.
package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bigkaa/goartstore/docvault/internal/domain/classify"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// ErrDisabled — выгрузка для обмена не настроена.
var ErrDisabled = errors.New("обмен документами не настроен")

// Config — параметры S3-хранилища для обмена.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Prefix — префикс ключей объектов
	Prefix string
	// URLTTL — время жизни ссылки
	URLTTL time.Duration
}

// Link — временная ссылка на выгруженный документ.
type Link struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectAPI — операции S3, нужные для выгрузки.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner — подпись GET-запросов.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Sharer выгружает документы и выдаёт ссылки.
type Sharer struct {
	objects ObjectAPI
	presign Presigner
	bucket  string
	prefix  string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New создаёт Sharer с клиентом S3 из cfg.
// Без явных ключей используется стандартная цепочка учётных данных AWS.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Sharer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("share: bucket обязателен")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return NewWithClient(client, s3.NewPresignClient(client), cfg, logger), nil
}

// NewWithClient создаёт Sharer с готовыми клиентами.
func NewWithClient(objects ObjectAPI, presign Presigner, cfg Config, logger *slog.Logger) *Sharer {
	return &Sharer{
		objects: objects,
		presign: presign,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		ttl:     cfg.URLTTL,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With(slog.String("component", "share")),
	}
}

// Key возвращает ключ объекта для документа.
func (s *Sharer) Key(doc model.Document) string {
	return s.prefix + doc.ID + "/" + doc.DisplayName
}

// Upload выгружает содержимое документа и возвращает временную ссылку.
// body должен поддерживать Seek, если размер неизвестен.
func (s *Sharer) Upload(ctx context.Context, doc model.Document, body io.Reader, size int64) (*Link, error) {
	key := s.Key(doc)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(classify.ContentType(doc.DisplayName)),
		Metadata: map[string]string{
			"document-id": doc.ID,
			"type-hint":   string(doc.TypeHint),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка выгрузки документа %s: %w", doc.ID, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи ссылки для %s: %w", doc.ID, err)
	}

	s.logger.Info("Документ выгружен для обмена",
		slog.String("document_id", doc.ID),
		slog.String("key", key),
		slog.Duration("ttl", s.ttl),
	)

	return &Link{
		URL:       req.URL,
		Key:       key,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}
