package command

import (
	"context"
	"strconv"

	"github.com/yndnr/confkit-go/internal/cli/output"
	"github.com/yndnr/confkit-go/pkg/confkit"
)

// entryView is the rendered form of a resolved key.
type entryView struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Found  bool   `json:"found" yaml:"found"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// newEntryView renders e. Values are shown in their log format unless
// reveal is set.
func newEntryView(kit *confkit.Kit, e confkit.Entry, reveal bool) entryView {
	v := entryView{
		Key:    e.Key,
		Source: e.LoaderType,
		Path:   e.Path,
		Found:  e.Found,
	}
	if e.Default {
		v.Source = "default"
	}
	if reveal {
		v.Value = kit.Render(e)
	} else {
		v.Value = kit.RenderLog(e)
	}
	return v
}

// resolveAll resolves every declared key. Failures are kept in the view.
func resolveAll(ctx context.Context, kit *confkit.Kit, reveal bool) []entryView {
	views := make([]entryView, 0, len(kit.Keys()))
	for _, key := range kit.Keys() {
		e, err := kit.GetEntry(ctx, key)
		if err != nil {
			views = append(views, entryView{Key: key, Error: err.Error()})
			continue
		}
		views = append(views, newEntryView(kit, e, reveal))
	}
	return views
}

type entryList []entryView

func (l entryList) Table() *output.Table {
	t := output.NewTable("KEY", "VALUE", "SOURCE", "PATH")
	for _, v := range l {
		t.AddRow(v.Key, v.Value, v.Source, v.Path)
	}
	return t
}

// checkList renders resolution status per key.
type checkList []entryView

func (l checkList) Table() *output.Table {
	t := output.NewTable("KEY", "STATUS", "SOURCE", "DETAIL")
	for _, v := range l {
		switch {
		case v.Error != "":
			t.AddRow(v.Key, "error", "", v.Error)
		case !v.Found:
			t.AddRow(v.Key, "unset", "", "")
		default:
			t.AddRow(v.Key, "ok", v.Source, v.Path)
		}
	}
	return t
}

// loaderView is one loader's raw answer for a key.
type loaderView struct {
	Loader   string `json:"loader" yaml:"loader"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Found    bool   `json:"found" yaml:"found"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type loaderList []loaderView

func (l loaderList) Table() *output.Table {
	t := output.NewTable("LOADER", "FOUND", "VALUE", "PATH")
	for _, v := range l {
		found := strconv.FormatBool(v.Found)
		switch {
		case v.Disabled:
			found = "disabled"
		case v.Error != "":
			found = "error: " + v.Error
		}
		t.AddRow(v.Loader, found, v.Value, v.Path)
	}
	return t
}

// changeView is a value change seen by watch.
type changeView struct {
	Key    string `json:"key" yaml:"key"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

type changeList []changeView

func (l changeList) Table() *output.Table {
	t := output.NewTable("KEY", "OLD", "NEW", "SOURCE")
	for _, v := range l {
		t.AddRow(v.Key, v.Old, v.New, v.Source)
	}
	return t
}

// diffEntries lists keys whose value, source or error changed.
func diffEntries(prev, next []entryView) changeList {
	old := make(map[string]entryView, len(prev))
	for _, v := range prev {
		old[v.Key] = v
	}
	var changes changeList
	for _, v := range next {
		o := old[v.Key]
		if o.Value == v.Value && o.Source == v.Source && o.Error == v.Error && o.Found == v.Found {
			continue
		}
		changes = append(changes, changeView{Key: v.Key, Old: display(o), New: display(v), Source: v.Source})
	}
	return changes
}

func display(v entryView) string {
	switch {
	case v.Error != "":
		return "error: " + v.Error
	case !v.Found:
		return "<unset>"
	}
	return v.Value
}
