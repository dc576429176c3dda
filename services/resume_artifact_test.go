package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveReturnsExistingLocalPath(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "resume.pdf")
	assert.NoError(t, os.WriteFile(localPath, []byte("pdf bytes"), 0644))

	service := &ResumeArtifactService{bucket: "app-resumes"}
	resolved, err := service.Resolve(localPath)

	assert.NoError(t, err)
	assert.Equal(t, localPath, resolved)
}

func TestResolveRejectsEmptyReference(t *testing.T) {
	service := &ResumeArtifactService{bucket: "app-resumes"}
	_, err := service.Resolve("")
	assert.Error(t, err)
}

func TestArtifactKeyNormalization(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		expected  string
	}{
		{"bare key", "resumes/jane.pdf", "resumes/jane.pdf"},
		{"s3 scheme", "s3://resumes/jane.pdf", "resumes/jane.pdf"},
		{"s3 scheme with bucket", "s3://app-resumes/resumes/jane.pdf", "resumes/jane.pdf"},
		{"bucket prefix only", "app-resumes/resumes/jane.pdf", "resumes/jane.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, artifactKey(tt.reference, "app-resumes"))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe Resume", DisplayName("jane_doe_resume.pdf"))
	assert.Equal(t, "Backend Engineer Cv", DisplayName("backend_engineer_cv.docx"))
	assert.Equal(t, "Resume", DisplayName("resume"))
}
