// pkg/archive/s3.go

// Package archive keeps a copy of rendered invoice PDFs in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

// S3 uploads PDFs under <prefix>/<owner>/<invoice number>.pdf.
type S3 struct {
	uploader s3manageriface.UploaderAPI
	client   s3iface.S3API
	bucket   string
	prefix   string
}

// NewS3 builds an uploader from the default AWS credential chain.
func NewS3(region, bucket, prefix string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewS3WithClients(s3manager.NewUploader(sess), s3.New(sess), bucket, prefix), nil
}

func NewS3WithClients(u s3manageriface.UploaderAPI, client s3iface.S3API, bucket, prefix string) *S3 {
	if prefix == "" {
		prefix = "invoices"
	}
	return &S3{uploader: u, client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key used for doc.
func (a *S3) Key(doc *invoice.Document) string {
	return path.Join(a.prefix, doc.OwnerID, doc.InvoiceNumber+".pdf")
}

// Archive uploads pdf and returns the object key.
func (a *S3) Archive(ctx context.Context, doc *invoice.Document, pdf []byte) (string, error) {
	key := a.Key(doc)
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(pdf),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String("attachment; filename=" + doc.Filename()),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// Discard deletes an object written by Archive whose invoice was never saved.
func (a *S3) Discard(ctx context.Context, key string) error {
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
