package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/scopebind/internal/errors"
	"github.com/vango-dev/scopebind/internal/page"
	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/loop"
)

func renderCmd(g *globals) *cobra.Command {
	var (
		src    page.Source
		clicks []string
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Bind data to a template and print the result",
		Long: `Bind data to a template, apply assignments and clicks, and print the
resulting HTML.

Examples:
  scopebind render index.html --data data.yaml
  scopebind render index.html --set user.name=ada --set count=3
  scopebind render index.html --data data.json --click "#next" --click "#next"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src.Template = args[0]
			return runRender(cmd, g, src, clicks)
		},
	}

	cmd.Flags().StringVarP(&src.Data, "data", "d", "", "JSON or YAML data file")
	cmd.Flags().StringVarP(&src.Root, "root", "r", page.DefaultRoot, "Selector of the element to bind")
	cmd.Flags().StringArrayVar(&src.Sets, "set", nil, "Assign key=value after binding (repeatable)")
	cmd.Flags().StringArrayVar(&clicks, "click", nil, "Click the element matching a selector (repeatable)")

	return cmd
}

func runRender(cmd *cobra.Command, g *globals, src page.Source, clicks []string) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	host := loop.NewManual()
	p, err := page.Open(src,
		bind.WithHost(host),
		bind.WithLogger(logger),
		bind.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer p.Engine.Close()
	host.Drain()

	for _, sel := range clicks {
		n, err := p.Doc.Query(sel)
		if err != nil {
			return errors.New(errors.CodeTargetMissing).WithDetail(sel).Wrap(err)
		}
		if n == nil {
			return errors.New(errors.CodeTargetMissing).WithDetail(sel).Wrap(bind.ErrTargetMissing)
		}
		p.Doc.Click(n)
		host.Drain()
	}

	return p.Doc.Render(cmd.OutOrStdout())
}
