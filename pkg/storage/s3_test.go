package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3Config(t *testing.T) {
	t.Run("Should need a bucket and credentials", func(t *testing.T) {
		assert.False(t, S3Config{Bucket: "icons"}.Configured())
		assert.True(t, S3Config{Bucket: "icons", AccessKeyID: "id", SecretAccessKey: "secret"}.Configured())
	})

	t.Run("Should resolve provider endpoints", func(t *testing.T) {
		assert.Equal(t, "", S3Config{Provider: S3ProviderAWS}.endpoint())
		assert.Equal(t, "https://s3.eu-central-1.wasabisys.com", S3Config{Provider: S3ProviderWasabi, Region: "eu-central-1"}.endpoint())
		assert.Equal(t, "https://s3.ap-southeast-1.wasabisys.com", S3Config{Provider: S3ProviderWasabi, Region: "mars-1"}.endpoint())
		assert.Equal(t, "http://minio:9000", S3Config{Provider: S3ProviderCustom, Endpoint: "http://minio:9000"}.endpoint())
	})
}
