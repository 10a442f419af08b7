package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/config"
	"github.com/hyesung/opsbundle/internal/errors"
	"github.com/hyesung/opsbundle/internal/linktree"
	"github.com/hyesung/opsbundle/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	datasets config.Datasets
	baseDir  string
	renderer *Renderer
}

// dataset resolves the {dataset} path segment against the configuration.
// Unknown datasets render 404 rather than creating scopes on the fly.
func (h *Handlers) dataset(r *http.Request) (config.Dataset, error) {
	id := r.PathValue("dataset")
	ds, ok := h.datasets.ByID(id)
	if !ok {
		return config.Dataset{}, errors.NewNotFound("dataset", id)
	}
	return ds, nil
}

func (h *Handlers) pageData(title, nav string, ds config.Dataset) PageData {
	return PageData{
		Title:    title,
		Version:  h.renderer.version,
		Nav:      nav,
		Dataset:  ds,
		Datasets: h.datasets,
	}
}

// HandleList handles GET /d/{dataset}/bundles — list or search bundles.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}

	name := r.URL.Query().Get("name")
	keyword := r.URL.Query().Get("keyword")
	filtered := name != "" || keyword != ""

	data := ListPageData{
		PageData: h.pageData(ds.Label, "bundles", ds),
		Name:     name,
		Keyword:  keyword,
		Filtered: filtered,
	}
	if v := r.URL.Query().Get("imported"); v != "" {
		data.HasImport = true
		data.Imported, _ = strconv.Atoi(v)
		data.Skipped, _ = strconv.Atoi(r.URL.Query().Get("skipped"))
	}

	if filtered {
		result, err := ops.Search(h.db, ops.SearchInput{Dataset: ds.ID, Name: name, Keyword: keyword})
		if err != nil {
			h.renderer.renderError(w, r, err, data.PageData)
			return
		}
		data.Bundles = result.Bundles
	} else {
		result, err := ops.List(h.db, ops.ListInput{Dataset: ds.ID, KeywordLimit: h.cfg.KeywordLimit})
		if err != nil {
			h.renderer.renderError(w, r, err, data.PageData)
			return
		}
		data.Bundles = result.Bundles
		data.Keywords = result.Keywords
	}

	h.renderer.renderPage(w, r, "list", data)
}

// HandleNew handles GET /d/{dataset}/bundles/new — empty create form.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}

	h.renderer.renderPage(w, r, "form", FormPageData{
		PageData: h.pageData("New bundle", "bundles", ds),
		Action:   "/d/" + ds.ID + "/bundles",
	})
}

// HandleCreate handles POST /d/{dataset}/bundles.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"), h.pageData("New bundle", "bundles", ds))
		return
	}

	fields := bundleFieldsFromForm(r)
	result, err := ops.Create(h.db, ops.CreateInput{Dataset: ds.ID, Fields: fields})
	if err != nil {
		// Validation errors re-render the form with the entered values.
		if errors.Is(err, errors.ErrValidation) {
			h.renderer.renderPageStatus(w, r, http.StatusBadRequest, "form", FormPageData{
				PageData:     h.pageData("New bundle", "bundles", ds),
				Action:       "/d/" + ds.ID + "/bundles",
				Fields:       fields,
				ErrorMessage: errorMessage(err),
			})
			return
		}
		h.renderer.renderError(w, r, err, h.pageData("New bundle", "bundles", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/bundles/"+result.ID, http.StatusSeeOther)
}

// HandleDetail handles GET /d/{dataset}/bundles/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	h.renderDetail(w, r, ds, r.PathValue("id"), "")
}

func (h *Handlers) renderDetail(w http.ResponseWriter, r *http.Request, ds config.Dataset, id, errorMessage string) {
	result, err := ops.Fetch(h.db, ops.FetchInput{Dataset: ds.ID, ID: id, IncludeLinks: true})
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Bundle", "bundles", ds))
		return
	}

	memos := make([]MemoView, len(result.Bundle.Memos))
	for i, m := range result.Bundle.Memos {
		memos[i] = MemoView{
			CommandID:     m.CommandID,
			CommandText:   m.CommandText,
			Description:   m.Description,
			MemoText:      m.MemoText,
			MemoHTML:      renderMarkdown(m.MemoText),
			ReferenceLink: m.ReferenceLink,
		}
	}

	status := http.StatusOK
	if errorMessage != "" {
		status = http.StatusBadRequest
	}
	h.renderer.renderPageStatus(w, r, status, "detail", DetailPageData{
		PageData:     h.pageData(result.Bundle.BundleName, "bundles", ds),
		Bundle:       result.Bundle,
		Memos:        memos,
		Links:        result.Links,
		ErrorMessage: errorMessage,
	})
}

// HandleUpdate handles POST /d/{dataset}/bundles/{id} — edit bundle fields
// and resynchronize memos against the new command list.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"), h.pageData("Edit bundle", "bundles", ds))
		return
	}

	fields := bundleFieldsFromForm(r)
	_, err = ops.Update(h.db, ops.UpdateInput{Dataset: ds.ID, ID: id, Fields: fields})
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			h.renderer.renderPageStatus(w, r, http.StatusBadRequest, "form", FormPageData{
				PageData:     h.pageData("Edit bundle", "bundles", ds),
				Action:       "/d/" + ds.ID + "/bundles/" + id,
				Fields:       fields,
				IsEdit:       true,
				ErrorMessage: errorMessage(err),
			})
			return
		}
		h.renderer.renderError(w, r, err, h.pageData("Edit bundle", "bundles", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/bundles/"+id, http.StatusSeeOther)
}

// HandleMemos handles POST /d/{dataset}/bundles/{id}/memos — per-command
// memo edits from form fields description_N, memo_text_N, reference_link_N.
func (h *Handlers) HandleMemos(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"), h.pageData("Bundle", "bundles", ds))
		return
	}

	edits, err := memoEditsFromForm(r)
	if err != nil {
		h.renderDetail(w, r, ds, id, errorMessage(err))
		return
	}

	_, err = ops.UpdateMemos(h.db, ops.UpdateMemosInput{Dataset: ds.ID, ID: id, Edits: edits})
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			h.renderDetail(w, r, ds, id, errorMessage(err))
			return
		}
		h.renderer.renderError(w, r, err, h.pageData("Bundle", "bundles", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/bundles/"+id, http.StatusSeeOther)
}

// HandleDelete handles POST /d/{dataset}/bundles/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}

	_, err = ops.Delete(h.db, ops.DeleteInput{Dataset: ds.ID, ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Bundles", "bundles", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/bundles", http.StatusSeeOther)
}

// HandleLinks handles GET /d/{dataset}/links — link entries grouped under
// the dataset's keyword tree.
func (h *Handlers) HandleLinks(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	h.renderLinks(w, r, ds, "")
}

func (h *Handlers) renderLinks(w http.ResponseWriter, r *http.Request, ds config.Dataset, errorMessage string) {
	result, err := ops.ListLinks(h.db, ops.ListLinksInput{Dataset: ds.ID})
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Links", "links", ds))
		return
	}

	data := LinksPageData{
		PageData:     h.pageData("Links", "links", ds),
		Links:        result.Links,
		ErrorMessage: errorMessage,
	}

	if ds.TreeFile != "" {
		treePath := ds.TreeFile
		if !filepath.IsAbs(treePath) {
			treePath = filepath.Join(h.baseDir, treePath)
		}
		nodes, err := linktree.ParseFile(treePath)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewStorage(err), data.PageData)
			return
		}
		if nodes != nil {
			data.Tree, data.Unmatched = linktree.Group(nodes, linkEntries(result.Links))
		}
	}

	status := http.StatusOK
	if errorMessage != "" {
		status = http.StatusBadRequest
	}
	h.renderer.renderPageStatus(w, r, status, "links", data)
}

// HandleLinkCreate handles POST /d/{dataset}/links.
func (h *Handlers) HandleLinkCreate(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid form data"), h.pageData("Links", "links", ds))
		return
	}

	commandID := 0
	if v := r.FormValue("command_id"); v != "" {
		commandID, err = strconv.Atoi(v)
		if err != nil {
			h.renderLinks(w, r, ds, "command_id must be an integer")
			return
		}
	}

	_, err = ops.CreateLink(h.db, ops.CreateLinkInput{
		Dataset: ds.ID,
		Fields: ops.LinkFields{
			BundleID:    r.FormValue("bundle_id"),
			CommandID:   commandID,
			URL:         r.FormValue("url"),
			Description: r.FormValue("description"),
			Tags:        r.FormValue("tags"),
		},
	})
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			h.renderLinks(w, r, ds, errorMessage(err))
			return
		}
		h.renderer.renderError(w, r, err, h.pageData("Links", "links", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/links", http.StatusSeeOther)
}

// HandleLinkDelete handles POST /d/{dataset}/links/{id}/delete.
func (h *Handlers) HandleLinkDelete(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}

	_, err = ops.DeleteLink(h.db, ops.DeleteLinkInput{Dataset: ds.ID, ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Links", "links", ds))
		return
	}

	http.Redirect(w, r, "/d/"+ds.ID+"/links", http.StatusSeeOther)
}

// HandleExport handles GET /d/{dataset}/export/{kind} — CSV download.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}
	kind, err := ops.ParseExportKind(r.PathValue("kind"))
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Export", "bundles", ds))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.csv"`, ds.ID, kind))

	if _, err := ops.WriteExport(w, h.db, ds.ID, kind); err != nil {
		// Headers may already be out; log-and-render is the best we can do.
		h.renderer.renderError(w, r, err, h.pageData("Export", "bundles", ds))
		return
	}
}

// HandleImport handles POST /d/{dataset}/import/{kind} — CSV upload.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.renderer.renderError(w, r, err, PageData{Datasets: h.datasets})
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("invalid multipart form"), h.pageData("Import", "bundles", ds))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("file field is required"), h.pageData("Import", "bundles", ds))
		return
	}
	defer file.Close()

	result, err := ops.ImportFrom(h.db, file, ops.ImportInput{
		Dataset: ds.ID,
		Kind:    ops.ExportKind(r.PathValue("kind")),
		Mode:    ops.ImportMode(r.FormValue("mode")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err, h.pageData("Import", "bundles", ds))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r,
		fmt.Sprintf("/d/%s/bundles?imported=%d&skipped=%d", ds.ID, result.Imported, result.Skipped),
		http.StatusSeeOther)
}

// bundleFieldsFromForm maps the bundle form onto BundleFields.
func bundleFieldsFromForm(r *http.Request) ops.BundleFields {
	return ops.BundleFields{
		Part:            r.FormValue("part"),
		BundleName:      r.FormValue("bundle_name"),
		CommandText:     r.FormValue("command_text"),
		Description:     r.FormValue("description"),
		Keywords:        r.FormValue("keywords"),
		ExpectedOutcome: r.FormValue("expected_outcome"),
		Interpretation:  r.FormValue("interpretation"),
		UpdatedDate:     r.FormValue("updated_date"),
		Todo:            r.FormValue("todo"),
	}
}

// memoEditsFromForm collects description_N / memo_text_N / reference_link_N
// form fields into per-position edits.
func memoEditsFromForm(r *http.Request) (map[int]ops.MemoEdit, error) {
	edits := make(map[int]ops.MemoEdit)
	for key, values := range r.PostForm {
		field, position, ok := splitMemoField(key)
		if !ok || len(values) == 0 {
			continue
		}
		n, err := strconv.Atoi(position)
		if err != nil {
			return nil, errors.NewValidationf("invalid memo field %q", key)
		}
		value := values[0]
		edit := edits[n]
		switch field {
		case "description":
			edit.Description = &value
		case "memo_text":
			edit.MemoText = &value
		case "reference_link":
			edit.ReferenceLink = &value
		}
		edits[n] = edit
	}
	return edits, nil
}

func splitMemoField(key string) (field, position string, ok bool) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	field = key[:idx]
	position = key[idx+1:]
	switch field {
	case "description", "memo_text", "reference_link":
		return field, position, true
	}
	return "", "", false
}

// linkEntries strips the resolution flag off for tree grouping.
func linkEntries(links []ops.ResolvedLink) []bundle.LinkEntry {
	entries := make([]bundle.LinkEntry, len(links))
	for i, l := range links {
		entries[i] = l.LinkEntry
	}
	return entries
}

// errorMessage extracts the human-readable message from a domain error.
func errorMessage(err error) string {
	if appErr, ok := err.(*errors.Error); ok {
		return appErr.Message
	}
	return err.Error()
}
