package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// completeRunIDs lists run IDs for shell completion, with the experiment and
// status as the description.
func completeRunIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || RunStore == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	runs, err := RunStore.ListRuns(models.RunFilter{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, r := range runs {
		if strings.HasPrefix(r.ID, toComplete) {
			ids = append(ids, r.ID+"\t"+r.Experiment.Name+": "+string(r.Status))
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	showCmd.ValidArgsFunction = completeRunIDs
}
