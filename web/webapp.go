/*
Functions for creating and servicing a web interface.
*/
package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/git"
	"github.com/spine-tools/ambience2abm/matrix"
	"github.com/spine-tools/ambience2abm/report"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
)

var webConfig config.Config
var baseName sources.SourceName
var derived *abm.Dataset

// Serve starts the web server listening on the supplied address:port,
// presenting the given processed building stock dataset.
func Serve(cfg *config.Config, data *abm.Dataset, addr string) error {
	webConfig = *cfg
	derived = data
	baseName = data.Stock().Source()

	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	fmt.Printf("Server started on http://%s\n", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(handler))
}

var errorTemplate = template.Must(template.New("error").Parse(
	`<html>OOPS!
<pre>{{.Error}}</pre>`))

// handler responds to requests on the web server
func handler(w http.ResponseWriter, r *http.Request) {
	log.Print(r.Method, r.URL)
	var err error
	switch r.Method {
	case "GET":
		err = get(w, r)
	default:
		err = fmt.Errorf("Unknown HTTP method: %s", r.Method)
	}
	if err != nil {
		_ = errorTemplate.Execute(w, err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(
	`<!DOCTYPE html>
<html lang="en">
<head>
<title>{{.Name}}</title>
<style>
.rTable {
  	display: table;
}
.rTableRow {
  	display: table-row;
}
.rTableCell {
  	display: table-cell;
  	padding: 3px 10px;
}
.rTableBody {
  	display: table-row-group;
}

.matrices {
	display: table;
	margin-right: 4em;
}
.matrices div {
	display: table-row;
}
.matrices div div {
	display: table-cell;
}
</style>
</head>

<body>
<h1>{{.Name}}</h1>

<p>{{ .Segments }} building stock segments for {{ .Year }}, revision {{ .Version }}
({{ .Major }} major, {{ .Minor }} minor, {{ .Note }} note issues).</p>
{{ with .Commits }}
<p>History:
<select name="revision">
{{ range . }}<option value="{{ . }}">{{ . }}</option>{{ end }}</select></p>
{{ end }}

<h2>Reports</h2>
<form action="/report" method="get">
<p>Filter by:
<div class="rTable">
<div class="rTableRow">
<div class="rTableCell">Reference building code:</div>
<div class="rTableCell"><input name="code_filter" type="text"></div>
</div>
<div class="rTableRow">
<div class="rTableCell">Country:</div>
<div class="rTableCell"><input name="country_filter" type="text"></div>
</div>
<div class="rTableRow">
<div class="rTableCell">Building type:</div>
<div class="rTableCell"><input name="type_filter" type="text"></div>
</div>
<div class="rTableRow">
<div class="rTableCell">Construction period:</div>
<div class="rTableCell"><input name="period_filter" type="text"></div>
</div>
<div class="rTableRow">
<div class="rTableCell">Heat source:</div>
<div class="rTableCell"><input name="heat_source_filter" type="text"></div>
</div>
<div class="rTableRow">
<div class="rTableCell"></div>
<div class="rTableCell"><input type="reset"></div>
</div>
</div>
<input type="submit" name="report-type" value="Stock"/>
<input type="submit" name="report-type" value="Statistics"/>
<input type="submit" name="report-type" value="Issues"/>
</p>
</form>

<h2>Coverage Matrices</h2>
<div style="display: flex;">
	<div class="matrices">
	{{ range .Coverages }}
		<div>
			<div>
				<a href="/matrix?coverage={{ . }}">{{ . }}</a>
			</div>
		</div>
	{{ end }}
	</div>
</div>

<h2>Assumption Tables</h2>
<div style="display: flex;">
	<div class="matrices">
	{{ range .Tables }}
		<div>
			<div>
				<a href="/file/{{ $.Source }}/{{ .Path }}">{{ .Name }}</a>
			</div>
		</div>
	{{ end }}
		<div>
			<div>
				<a href="/file/{{ .Source }}/{{ .ConfigFile }}">configuration</a>
			</div>
		</div>
	</div>
</div>
</body>
</html>`))

type tableLink struct {
	Name string
	Path string
}

type indexData struct {
	Name       string
	Year       int
	Version    string
	Segments   int
	Major      int
	Minor      int
	Note       int
	Commits    []string
	Coverages  []matrix.Coverage
	Tables     []tableLink
	Source     string
	ConfigFile string
}

// allIssueCounts tallies the issues of every processing stage.
func allIssueCounts() (major, minor, note int) {
	data := derived.Stock()
	var issues []diagnostics.Issue
	issues = append(issues, data.Assumptions.Issues...)
	issues = append(issues, data.Issues...)
	issues = append(issues, derived.Issues...)
	return diagnostics.CountBySeverity(issues)
}

// get provides the page information for a given request
func get(w http.ResponseWriter, r *http.Request) error {
	reqPath := r.URL.Path

	// root page
	if reqPath == "/" {
		name := webConfig.Datapackage.Title
		if name == "" {
			name = webConfig.Datapackage.Name
		}
		data := indexData{
			Name:       name,
			Year:       webConfig.BuildingStockYear,
			Version:    derived.Version(),
			Segments:   len(derived.Stock().Segments),
			Coverages:  matrix.Coverages,
			Source:     string(baseName),
			ConfigFile: sources.ConfigFileName,
		}
		data.Major, data.Minor, data.Note = allIssueCounts()
		// The data repository not being a git checkout leaves the
		// history empty.
		if path, err := sources.PathOfSource(baseName); err == nil {
			data.Commits, _ = git.AllCommits(string(path))
		}
		for _, tableName := range assumptions.TableNames {
			data.Tables = append(data.Tables, tableLink{
				Name: tableName,
				Path: derived.Stock().Assumptions.Path(tableName),
			})
		}
		return indexTemplate.Execute(w, data)
	}

	// raw data and assumption files linked to from the index and reports
	if strings.HasPrefix(reqPath, "/file/") {
		path := strings.TrimPrefix(reqPath, "/file/")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) < 2 {
			return fmt.Errorf("Invalid file link `%s`", reqPath)
		}

		filePath, err := sources.PathInSource(sources.SourceName(parts[0]), parts[1])
		if err != nil {
			return errors.Wrap(err, "failed to resolve file")
		}
		contents, err := os.ReadFile(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to read file")
		}

		lexer := lexers.Match(reqPath)
		if lexer == nil {
			// The csv tables have no dedicated lexer
			lexer = lexers.Fallback
		}
		iterator, err := lexer.Tokenise(nil, string(contents))
		if err != nil {
			return errors.Wrap(err, "failed to tokenise file")
		}
		formatter := html.New(html.Standalone(true), html.WithLineNumbers(true), html.LinkableLineNumbers(true, "L"), html.WithClasses(true))
		style := styles.Get("vs")
		return formatter.Format(w, style, iterator)
	}

	switch {
	case reqPath == "/report":
		filter, err := createFilterFromHttpRequest(r)
		if err != nil {
			return errors.Wrap(err, "failed to create filter")
		}
		switch r.FormValue("report-type") {
		case "Stock":
			if !filter.IsEmpty() {
				return report.ReportStockFiltered(derived, w, filter)
			}
			return report.ReportStock(derived, w)
		case "Statistics":
			if !filter.IsEmpty() {
				return report.ReportStatisticsFiltered(derived, w, filter)
			}
			return report.ReportStatistics(derived, w)
		case "Issues":
			if !filter.IsEmpty() {
				return report.ReportIssuesFiltered(derived, w, filter)
			}
			return report.ReportIssues(derived, w)
		}
	case reqPath == "/matrix":
		return matrix.GenerateCoverageTables(derived.Stock(), w, matrix.Coverage(r.FormValue("coverage")))
	}
	return nil
}

// createFilterFromHttpRequest generates an appropriate report filter based on the web page form values
func createFilterFromHttpRequest(r *http.Request) (*stock.SegmentFilter, error) {
	filter := &stock.SegmentFilter{}
	var err error
	if r.FormValue("code_filter") != "" {
		filter.CodeRegexp, err = regexp.Compile(r.FormValue("code_filter"))
		if err != nil {
			return nil, errors.Wrap(err, "code_filter regex invalid")
		}
	}
	if r.FormValue("country_filter") != "" {
		filter.CountryRegexp, err = regexp.Compile(r.FormValue("country_filter"))
		if err != nil {
			return nil, errors.Wrap(err, "country_filter regex invalid")
		}
	}
	if r.FormValue("type_filter") != "" {
		filter.TypeRegexp, err = regexp.Compile(r.FormValue("type_filter"))
		if err != nil {
			return nil, errors.Wrap(err, "type_filter regex invalid")
		}
	}
	if r.FormValue("period_filter") != "" {
		filter.PeriodRegexp, err = regexp.Compile(r.FormValue("period_filter"))
		if err != nil {
			return nil, errors.Wrap(err, "period_filter regex invalid")
		}
	}
	filter.HeatSourceOnly = r.FormValue("heat_source_filter")
	return filter, nil
}
