package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResumeArtifactService resolves an applicant's resume to a local file
// path that a file input on an application form can accept. Resumes
// referenced as s3:// URIs are downloaded on demand.
type ResumeArtifactService struct {
	s3Client *s3.S3
	bucket   string
	region   string
	cacheDir string
}

func NewResumeArtifactService() (*ResumeArtifactService, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	region := os.Getenv("AWS_REGION")
	bucket := os.Getenv("AWS_S3_BUCKET")

	if accessKey == "" || secretKey == "" || region == "" || bucket == "" {
		return nil, fmt.Errorf("AWS credentials not configured")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &ResumeArtifactService{
		s3Client: s3.New(sess),
		bucket:   bucket,
		region:   region,
		cacheDir: filepath.Join(os.TempDir(), "autoapply-resumes"),
	}, nil
}

// Resolve turns a resume reference into a local file path. Local paths
// pass through after an existence check; s3:// URIs and bare keys are
// downloaded into the cache directory.
func (s *ResumeArtifactService) Resolve(reference string) (string, error) {
	if reference == "" {
		return "", fmt.Errorf("no resume reference provided")
	}

	if !strings.HasPrefix(reference, "s3://") {
		if _, err := os.Stat(reference); err == nil {
			return reference, nil
		}
	}

	return s.download(artifactKey(reference, s.bucket))
}

// artifactKey normalizes a resume reference to an S3 object key, stripping
// the scheme and a leading bucket segment.
func artifactKey(reference, bucket string) string {
	key := strings.TrimPrefix(reference, "s3://")
	if trimmed := strings.TrimPrefix(key, bucket+"/"); trimmed != key {
		key = trimmed
	}
	return key
}

func (s *ResumeArtifactService) download(key string) (string, error) {
	output, err := s.s3Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch resume from S3: %v", err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create resume cache: %v", err)
	}

	localPath := filepath.Join(s.cacheDir, filepath.Base(key))
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local resume file: %v", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, output.Body); err != nil {
		return "", fmt.Errorf("failed to write resume file: %v", err)
	}

	log.Printf("Resume downloaded from S3: %s -> %s", key, localPath)
	return localPath, nil
}

// Upload stores a resume file under resumes/ and returns its download URL.
func (s *ResumeArtifactService) Upload(filePath, fileName string) (string, error) {
	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	key := "resumes/" + fileName
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileContent),
		ContentType: aws.String("application/pdf"),
	}

	if _, err := s.s3Client.PutObject(input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	downloadURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	log.Printf("Resume uploaded to S3: %s", downloadURL)
	return downloadURL, nil
}

// GeneratePresignedURL generates a presigned URL for secure downloads
func (s *ResumeArtifactService) GeneratePresignedURL(fileName string) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String("resumes/" + fileName),
	})

	url, err := req.Presign(1 * time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %v", err)
	}
	return url, nil
}

// DisplayName derives a human-readable resume name from its filename.
func DisplayName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = strings.ReplaceAll(name, "_", " ")
	return cases.Title(language.English).String(name)
}
