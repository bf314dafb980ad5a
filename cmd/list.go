package cmd

import (
	"fmt"
	"os"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	listGroups string
	listFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the filtered manifest's projects",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listGroups, "groups", "g", "", "group filter")
	listCmd.Flags().StringVar(&listFormat, "format", "plain", "output format: plain or yaml")
}

// yamlProject is list --format=yaml's per-project projection: enough to
// diff or script against without exposing the full manifest.Project shape.
type yamlProject struct {
	Path       string   `yaml:"path"`
	Name       string   `yaml:"name"`
	RemoteName string   `yaml:"remote_name"`
	Revision   string   `yaml:"revision"`
	Groups     []string `yaml:"groups,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	filter := ws.Settings.GroupFilter
	if listGroups != "" {
		filter = groupfilter.Parse(listGroups, true)
	}
	filtered := manifest.Filter(ws.Manifest, filter)

	switch listFormat {
	case "yaml":
		return printListYAML(os.Stdout, filtered)
	default:
		for _, p := range filtered.Projects {
			fmt.Fprintf(os.Stdout, "%s : %s\n", p.Path, p.Name)
		}
		return nil
	}
}

func printListYAML(w *os.File, m *manifest.Manifest) error {
	out := make([]yamlProject, len(m.Projects))
	for i, p := range m.Projects {
		yp := yamlProject{Path: p.Path, Name: p.Name, RemoteName: p.RemoteName, Revision: p.Revision}
		for _, g := range p.Groups {
			yp.Groups = append(yp.Groups, g.Name)
		}
		out[i] = yp
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}
