package session

import (
	"fmt"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
)

// Phase names a State variant.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFileSelected
	PhaseUploading
	PhaseUploaded
	PhaseProcessing
	PhaseProcessed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFileSelected:
		return "file selected"
	case PhaseUploading:
		return "uploading"
	case PhaseUploaded:
		return "uploaded"
	case PhaseProcessing:
		return "processing"
	case PhaseProcessed:
		return "processed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is one of Idle, FileSelected, Uploading, Uploaded, Processing or
// Processed. Each variant carries only the fields valid in that phase.
type State interface {
	Phase() Phase
	sealed()
}

type Idle struct{}

type FileSelected struct {
	File   *files.SelectedFile
	Prompt string
}

type Uploading struct {
	File   *files.SelectedFile
	Prompt string
}

type Uploaded struct {
	File   *files.SelectedFile
	Prompt string
	Upload *api.UploadResult
}

type Processing struct {
	File   *files.SelectedFile
	Prompt string
	Upload *api.UploadResult
}

type Processed struct {
	File    *files.SelectedFile
	Prompt  string
	Upload  *api.UploadResult
	Results *results.Document
}

func (Idle) Phase() Phase         { return PhaseIdle }
func (FileSelected) Phase() Phase { return PhaseFileSelected }
func (Uploading) Phase() Phase    { return PhaseUploading }
func (Uploaded) Phase() Phase     { return PhaseUploaded }
func (Processing) Phase() Phase   { return PhaseProcessing }
func (Processed) Phase() Phase    { return PhaseProcessed }

func (Idle) sealed()         {}
func (FileSelected) sealed() {}
func (Uploading) sealed()    {}
func (Uploaded) sealed()     {}
func (Processing) sealed()   {}
func (Processed) sealed()    {}

// FileOf returns the selected file of any file-bearing state.
func FileOf(s State) *files.SelectedFile {
	switch v := s.(type) {
	case FileSelected:
		return v.File
	case Uploading:
		return v.File
	case Uploaded:
		return v.File
	case Processing:
		return v.File
	case Processed:
		return v.File
	}
	return nil
}

// PromptOf returns the prompt of any file-bearing state.
func PromptOf(s State) string {
	switch v := s.(type) {
	case FileSelected:
		return v.Prompt
	case Uploading:
		return v.Prompt
	case Uploaded:
		return v.Prompt
	case Processing:
		return v.Prompt
	case Processed:
		return v.Prompt
	}
	return ""
}

// UploadOf returns the upload acknowledgement once a job id exists.
func UploadOf(s State) *api.UploadResult {
	switch v := s.(type) {
	case Uploaded:
		return v.Upload
	case Processing:
		return v.Upload
	case Processed:
		return v.Upload
	}
	return nil
}

// JobIDOf returns the job id, or "" before a successful upload.
func JobIDOf(s State) string {
	if u := UploadOf(s); u != nil {
		return u.JobID
	}
	return ""
}

// withPrompt returns s with its prompt replaced. Idle is returned unchanged.
func withPrompt(s State, prompt string) State {
	switch v := s.(type) {
	case FileSelected:
		v.Prompt = prompt
		return v
	case Uploading:
		v.Prompt = prompt
		return v
	case Uploaded:
		v.Prompt = prompt
		return v
	case Processing:
		v.Prompt = prompt
		return v
	case Processed:
		v.Prompt = prompt
		return v
	}
	return s
}
