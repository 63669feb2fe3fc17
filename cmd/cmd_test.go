package cmd

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/openhelm/corpus/internal/knowledge"
)

func TestCommandRegistration(t *testing.T) {
	expected := []string{"migrate", "worker", "base", "source", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range expected {
		if !registered[name] {
			t.Errorf("expected command %q to be registered", name)
		}
	}
}

func TestBaseSubcommands(t *testing.T) {
	base := newBaseCmd()

	expected := []string{"create", "list", "delete"}
	registered := make(map[string]bool)
	for _, c := range base.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("expected base subcommand %q", name)
		}
	}
}

func TestSourceSubcommands(t *testing.T) {
	source := newSourceCmd()

	expected := []string{"add", "list", "reindex", "delete"}
	registered := make(map[string]bool)
	for _, c := range source.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("expected source subcommand %q", name)
		}
	}
}

func TestBuildSourceParams(t *testing.T) {
	baseID := uuid.New()

	tests := []struct {
		name     string
		text     string
		file     string
		mime     string
		url      string
		wantType knowledge.SourceType
		wantName string
		wantErr  string
	}{
		{
			name:     "inline text",
			text:     "some content",
			wantType: knowledge.SourceTypeText,
			wantName: "inline text",
		},
		{
			name:     "website",
			url:      "https://example.com/docs",
			wantType: knowledge.SourceTypeWebsite,
			wantName: "https://example.com/docs",
		},
		{
			name:     "file with inferred mime",
			file:     "/data/manual.pdf",
			wantType: knowledge.SourceTypeFile,
			wantName: "manual.pdf",
		},
		{
			name:     "file with explicit mime",
			file:     "/data/report.bin",
			mime:     "text/plain",
			wantType: knowledge.SourceTypeFile,
			wantName: "report.bin",
		},
		{
			name:    "file with unknown extension",
			file:    "/data/report.bin",
			wantErr: "cannot infer MIME type",
		},
		{
			name:    "nothing set",
			wantErr: "exactly one of",
		},
		{
			name:    "text and url both set",
			text:    "content",
			url:     "https://example.com",
			wantErr: "exactly one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildSourceParams(baseID, "", tt.text, tt.file, tt.mime, tt.url)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, p.Type)
			}
			if p.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, p.Name)
			}
			if p.KnowledgeBaseID != baseID {
				t.Errorf("expected base id %s, got %s", baseID, p.KnowledgeBaseID)
			}
		})
	}
}

func TestBuildSourceParamsFileDetails(t *testing.T) {
	p, err := buildSourceParams(uuid.New(), "Manual", "", "/data/manual.pdf", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Manual" {
		t.Errorf("explicit name should win, got %q", p.Name)
	}
	if p.FileURL == nil || *p.FileURL != "/data/manual.pdf" {
		t.Error("expected file URL to carry the path")
	}
	if p.MimeType == nil || *p.MimeType != "application/pdf" {
		t.Error("expected pdf MIME type to be inferred")
	}
	if p.FileName == nil || *p.FileName != "manual.pdf" {
		t.Error("expected file name to be derived from the path")
	}
}

func TestMimeForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".pdf", "application/pdf"},
		{".txt", "text/plain"},
		{".md", "text/markdown"},
		{".markdown", "text/markdown"},
		{".csv", "text/csv"},
		{".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{".exe", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := mimeForExtension(tt.ext); got != tt.want {
			t.Errorf("mimeForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestInvalidIDArguments(t *testing.T) {
	commands := []struct {
		name string
		cmd  func() error
	}{
		{"base delete", func() error {
			c := newBaseDeleteCmd()
			c.SetArgs([]string{"not-a-uuid"})
			return c.Execute()
		}},
		{"source reindex", func() error {
			c := newSourceReindexCmd()
			c.SetArgs([]string{"not-a-uuid"})
			return c.Execute()
		}},
		{"source delete", func() error {
			c := newSourceDeleteCmd()
			c.SetArgs([]string{"not-a-uuid"})
			return c.Execute()
		}},
	}

	for _, tt := range commands {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd()
			if err == nil || !strings.Contains(err.Error(), "invalid") {
				t.Fatalf("expected invalid id error, got %v", err)
			}
		})
	}
}
