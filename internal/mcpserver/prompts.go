package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptFrontmatter is parsed from YAML frontmatter in prompt files.
type promptFrontmatter struct {
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
}

// promptArgument declares one substitutable {{name}} placeholder in the
// prompt body.
type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
	Required    bool   `yaml:"required"`
}

// registerPrompts discovers and registers all prompts from embedded markdown files.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".md")
		path := filepath.Join("prompts", entry.Name())

		content, err := promptFiles.ReadFile(path)
		if err != nil {
			continue
		}

		fm, body := parseFrontmatter(content)

		args := make([]*mcp.PromptArgument, len(fm.Arguments))
		for i, a := range fm.Arguments {
			args[i] = &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			}
		}

		prompt := &mcp.Prompt{
			Name:        name,
			Description: fm.Description,
			Arguments:   args,
		}
		s.server.AddPrompt(prompt, makePromptHandler(fm, body))
	}
}

// parseFrontmatter extracts YAML frontmatter and returns it with the body.
func parseFrontmatter(content []byte) (fm promptFrontmatter, body string) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return promptFrontmatter{}, string(content)
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return promptFrontmatter{}, string(content)
	}

	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return promptFrontmatter{}, string(content)
	}

	body = strings.TrimPrefix(string(rest[end+5:]), "\n")
	return fm, body
}

// substituteArg replaces the {{key}} placeholder with the provided argument,
// falling back to the declared default.
func substituteArg(text, key string, args map[string]string, defaultVal string) string {
	val := args[key]
	if val == "" {
		val = defaultVal
	}
	return strings.ReplaceAll(text, "{{"+key+"}}", val)
}

func makePromptHandler(fm promptFrontmatter, body string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		provided := map[string]string{}
		if req != nil && req.Params != nil && req.Params.Arguments != nil {
			provided = req.Params.Arguments
		}

		text := body
		for _, a := range fm.Arguments {
			if a.Required && provided[a.Name] == "" && a.Default == "" {
				return nil, fmt.Errorf("missing required argument %q", a.Name)
			}
			text = substituteArg(text, a.Name, provided, a.Default)
		}

		return &mcp.GetPromptResult{
			Description: fm.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: text},
				},
			},
		}, nil
	}
}
