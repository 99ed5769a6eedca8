package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tableloom/internal/analysis"
	"github.com/KaramelBytes/tableloom/internal/table"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", indexData{})
}

// handleUpload accepts one multipart file, parses it into a table, profiles
// it, and redirects to the dataset view. Parse failures come back to the
// upload page as a banner, not a bare traceback.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opt.MaxUploadBytes); err != nil {
		s.renderIndexError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload too large or malformed: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderIndexError(w, http.StatusBadRequest, "no file in upload")
		return
	}
	defer file.Close()

	tbl, err := table.Read(file, header.Filename, table.ReadOptions{MaxRows: s.opt.MaxRows})
	if err != nil {
		s.logger.Warn("upload parse failed", zap.String("file", header.Filename), zap.Error(err))
		s.renderIndexError(w, http.StatusBadRequest, fmt.Sprintf("could not parse %s: %v", header.Filename, err))
		return
	}
	popt := analysis.DefaultOptions()
	if s.opt.SampleRows > 0 {
		popt.SampleRows = s.opt.SampleRows
	}
	d := s.store.Add(tbl, analysis.Profile(tbl, popt))
	s.logger.Info("dataset uploaded",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.Int("rows", tbl.NumRows()),
		zap.Int("columns", tbl.NumColumns()))
	http.Redirect(w, r, "/datasets/"+d.ID, http.StatusSeeOther)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		s.renderIndexError(w, http.StatusNotFound, "dataset not found (it may have been evicted)")
		return
	}
	s.render(w, http.StatusOK, "dataset.html", s.datasetData(d))
}

// handleAsk runs one prompt through the dispatcher. The engine call blocks
// this handler for its duration; the request context is the only
// cancellation.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	d, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		s.renderIndexError(w, http.StatusNotFound, "dataset not found (it may have been evicted)")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderIndexError(w, http.StatusBadRequest, "malformed form")
		return
	}
	prompt := r.PostFormValue("prompt")

	data := s.datasetData(d)
	data.Asked = true
	data.Prompt = prompt

	result, err := s.querierFor(d).Dispatch(r.Context(), prompt)
	if err != nil {
		s.logger.Error("query failed", zap.String("dataset", d.ID), zap.Error(err))
		data.Error = fmt.Sprintf("query failed: %v", err)
		s.render(w, http.StatusBadGateway, "dataset.html", data)
		return
	}
	// Exactly one rendering path per result shape.
	if result.IsTable() {
		data.Result = gridFromTable(result.Table)
	} else {
		data.ResultText = result.Text
	}
	s.render(w, http.StatusOK, "dataset.html", data)
}

func (s *Server) renderIndexError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "index.html", indexData{Error: msg})
}
