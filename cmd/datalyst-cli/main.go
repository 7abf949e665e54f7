// Command datalyst-cli answers one question about a local CSV file, using
// the same analyst pipeline as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/datalyst/agent"
	"github.com/smallnest/datalyst/config"
	"github.com/smallnest/datalyst/dataset"
	"github.com/smallnest/datalyst/llm"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	csvPath := flag.String("csv", "", "path to the CSV file")
	question := flag.String("q", "", "question to ask")
	intent := flag.String("intent", "", "force an intent: analysis, visualization or summary")
	autoCorrect := flag.Bool("autocorrect", false, "auto-correct data issues before asking")
	envFile := flag.String("env", ".env", "path to the .env file")
	flag.Parse()

	if *csvPath == "" || (*question == "" && *intent != string(agent.IntentSummary)) {
		fmt.Fprintln(os.Stderr, "usage: datalyst-cli -csv data.csv -q \"total sales by region\" [-intent analysis] [-autocorrect]")
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatal("configuration error: %v", err)
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		fatal("cannot open %s: %v", *csvPath, err)
	}
	frame, err := dataset.ReadCSV(file)
	file.Close()
	if err != nil {
		fatal("cannot parse %s: %v", *csvPath, err)
	}

	report := frame.Validate()
	for _, issue := range report.Issues {
		fmt.Println(warnStyle.Render("! " + issue))
	}
	if *autoCorrect && report.HasIssues() {
		frame = frame.AutoCorrect()
		fmt.Println(faintStyle.Render(fmt.Sprintf("auto-corrected, %d rows remain", frame.Len())))
	}

	router, err := buildRouter(cfg)
	if err != nil {
		fatal("failed to set up models: %v", err)
	}
	analyst, err := agent.New(router, agent.Options{
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	})
	if err != nil {
		fatal("failed to build analyst pipeline: %v", err)
	}

	out, err := analyst.Run(context.Background(), agent.State{
		Query:  *question,
		Intent: agent.Intent(*intent),
		Frame:  frame,
	})
	if err != nil {
		fatal("%v", err)
	}

	if out.Expression != "" {
		fmt.Println(faintStyle.Render("plan: " + out.Expression))
	}

	switch out.Intent {
	case agent.IntentSummary:
		fmt.Println(titleStyle.Render("Summary"))
		fmt.Println(out.Answer)
	case agent.IntentVisualization:
		fmt.Println(titleStyle.Render("Figure (Plotly JSON)"))
		spec, err := json.MarshalIndent(out.Figure, "", "  ")
		if err != nil {
			fatal("cannot encode figure: %v", err)
		}
		fmt.Println(string(spec))
	default:
		fmt.Println(renderTable(out.Result))
	}
	fmt.Println(faintStyle.Render("answered by " + out.ModelUsed))
}

// renderTable prints a frame as an aligned, styled terminal table.
func renderTable(f *dataset.Frame) string {
	columns := f.Columns()
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	rows := f.Rows()
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, col := range columns {
		b.WriteString(headerStyle.Render(pad(col, widths[i])))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			b.WriteString(cellStyle.Render(pad(cell, widths[i])))
		}
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString(faintStyle.Render("(no rows)"))
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func buildRouter(cfg *config.Config) (*llm.Router, error) {
	var reasoning, visualization llm.ChatModel

	if cfg.Reasoning.APIKey != "" {
		model, err := buildModel(cfg.Reasoning)
		if err != nil {
			return nil, err
		}
		reasoning = model
	}
	if cfg.Visualization.APIKey != "" {
		model, err := buildModel(cfg.Visualization)
		if err != nil {
			return nil, err
		}
		visualization = model
	}
	return llm.NewRouter(reasoning, visualization), nil
}

func buildModel(mc config.ModelConfig) (llm.ChatModel, error) {
	switch mc.Provider {
	case config.ProviderLangChain:
		opts := []lcopenai.Option{
			lcopenai.WithToken(mc.APIKey),
			lcopenai.WithModel(mc.Name),
		}
		if mc.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(mc.BaseURL))
		}
		client, err := lcopenai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm.NewLangChainModel(client, mc.Name), nil
	default:
		return llm.NewOpenAIChat(mc.APIKey, mc.Name, llm.WithBaseURL(mc.BaseURL))
	}
}

func fatal(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
