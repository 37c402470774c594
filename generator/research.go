package generator

import (
	"context"
	"fmt"

	"auto_blog_writer/search"
	"auto_blog_writer/workflow"
)

// Researcher gathers web results and condenses them into a research brief.
type Researcher struct {
	agent    *Agent
	searcher search.Searcher
	notes    NotesSaver
}

// Researcher builds the research processor. notes may be nil.
func (a *Agent) Researcher(searcher search.Searcher, notes NotesSaver) *Researcher {
	return &Researcher{agent: a, searcher: searcher, notes: notes}
}

func (r *Researcher) Process(ctx context.Context, st workflow.State) (workflow.Update, error) {
	if r.searcher == nil {
		return workflow.Update{}, fmt.Errorf("research: no search backend configured")
	}
	log := r.agent.logger.With("stage", "research", "topic", st.Topic)

	mainQuery := st.Topic + " latest information"
	main, err := r.search(ctx, mainQuery)
	if err != nil {
		return workflow.Update{}, err
	}
	perKeyword := make([]KeywordResult, 0, len(st.Keywords))
	for _, kw := range st.Keywords {
		resp, err := r.search(ctx, st.Topic+" "+kw+" in detail")
		if err != nil {
			return workflow.Update{}, err
		}
		perKeyword = append(perKeyword, KeywordResult{Keyword: kw, Response: resp})
	}
	log.Info("search done", "results", len(main.Results), "keywords", len(perKeyword))

	prompt := BuildResearchPrompt(st, FormatSearchData(main, perKeyword), r.agent.settings.ResearchTemperature)
	brief, err := r.agent.generate(ctx, "research", prompt)
	if err != nil {
		return workflow.Update{}, err
	}

	sources := make([]string, 0, len(main.Results))
	for _, res := range main.Results {
		sources = append(sources, res.Link())
	}
	upd := workflow.Update{ResearchData: &brief, Sources: sources}

	if r.notes != nil {
		path, err := r.notes.SaveNotes(ctx, brief, sources, st.Topic)
		if err != nil {
			return workflow.Update{}, fmt.Errorf("research: save notes: %w", err)
		}
		upd.ResearchNotesFile = &path
		log.Info("research notes saved", "path", path)
	}
	log.Info("research complete", "sources", len(sources))
	return upd, nil
}

func (r *Researcher) search(ctx context.Context, query string) (search.Response, error) {
	resp, err := r.searcher.Search(ctx, search.Request{
		Query:      query,
		Depth:      r.agent.settings.SearchDepth,
		MaxResults: r.agent.settings.MaxResults,
	})
	if err != nil {
		return search.Response{}, fmt.Errorf("research: search %q: %w", query, err)
	}
	if resp.Query == "" {
		resp.Query = query
	}
	return resp, nil
}
