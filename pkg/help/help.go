// Package help adds topic pages to the cobra help command. Topics are plain
// text files embedded in the binary; `deploytpl help <topic>` prints one and
// `deploytpl help topics` lists them.
package help

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

//go:embed topics/*.txt
var embedded embed.FS

// TopicsDir is the directory of the embedded topic files.
const TopicsDir = "topics"

// Topic is one help page.
type Topic struct {
	Name    string
	Title   string
	Content string
}

// Renderer formats a topic for the terminal.
type Renderer interface {
	Render(t Topic) string
}

// PlainRenderer prints the content unchanged.
type PlainRenderer struct{}

// Render implements Renderer.
func (PlainRenderer) Render(t Topic) string {
	return t.Content
}

// Manager holds the topics of a command tree.
type Manager struct {
	topics   map[string]Topic
	renderer Renderer
}

// Load reads every .txt file under dir in fsys. The first line of a file is
// its title.
func Load(fsys fs.FS, dir string, renderer Renderer) (*Manager, error) {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	m := &Manager{topics: make(map[string]Topic), renderer: renderer}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read help topics: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".txt" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read help topic %s: %w", e.Name(), err)
		}
		content := string(data)
		title, _, _ := strings.Cut(content, "\n")
		name := strings.TrimSuffix(e.Name(), ".txt")
		m.topics[name] = Topic{Name: name, Title: strings.TrimSpace(title), Content: content}
	}
	return m, nil
}

// Default returns a Manager over the embedded topics.
func Default(renderer Renderer) (*Manager, error) {
	return Load(embedded, TopicsDir, renderer)
}

// Get returns the topic called name. A leading "--" is ignored so that
// `help --property` finds the property topic.
func (m *Manager) Get(name string) (Topic, bool) {
	name = strings.TrimLeft(name, "-")
	t, ok := m.topics[name]
	return t, ok
}

// Names returns the topic names in order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) list(w io.Writer, bin string) {
	names := m.Names()
	if len(names) == 0 {
		fmt.Fprintln(w, "No help topics available.")
		return
	}
	fmt.Fprintln(w, "Available help topics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", name, m.topics[name].Title)
	}
	fmt.Fprintf(w, "\nUse '%s help <topic>' to read about a specific topic.\n", bin)
}

// Install replaces the help command of root with one that also knows about
// topics. Commands still take precedence over topics of the same name.
func (m *Manager) Install(root *cobra.Command) {
	original := root.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: "Help provides help for any command or topic.\n\n" +
			"To see all available help topics:\n  " + root.Name() + " help topics",
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range root.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				original(root, args)
				return
			}
			if args[0] == "topics" {
				m.list(w, root.Name())
				return
			}
			if target, _, err := root.Find(args); err == nil && target != root {
				original(target, args)
				return
			}
			if t, ok := m.Get(args[0]); ok {
				fmt.Fprint(w, m.renderer.Render(t))
				return
			}
			original(root, args)
		},
	}
	if root.ContainsGroup("misc") {
		helpCmd.GroupID = "misc"
	}
	root.SetHelpCommand(helpCmd)
}
