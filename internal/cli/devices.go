// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	defaultStyle = cellStyle.Foreground(lipgloss.Color("10"))
)

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drv := a.driver()
			names, err := drv.Devices()
			if err != nil {
				return err
			}
			def, err := drv.DefaultDevice()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(names))
			defaultRow := -1
			for i, name := range names {
				mark := ""
				if name == def {
					mark = "*"
					defaultRow = i
				}
				rows = append(rows, []string{mark, name})
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				Headers("", "DEVICE").
				Rows(rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					switch row {
					case table.HeaderRow:
						return headerStyle
					case defaultRow:
						return defaultStyle
					}
					return cellStyle
				})

			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}
