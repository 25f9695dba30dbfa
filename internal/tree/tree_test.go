package tree_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/hooks"
	"github.com/calvinalkan/pagelister/internal/settings"
	"github.com/calvinalkan/pagelister/internal/tree"
)

func containerSettings() settings.Settings {
	s := settings.Default()
	_ = s.Upsert(settings.Container{Template: "data_container", Mode: settings.ModeAuto, NumFields: 5, Strategy: settings.StrategyFirstN})

	return s
}

func adapter(s settings.Settings) *tree.Adapter {
	return tree.New(func(context.Context) (settings.Settings, error) { return s, nil })
}

var (
	container = &content.Record{ID: 2, Template: "data_container", Title: "Products", Path: "/data/products/"}
	plainPage = &content.Record{ID: 3, Template: "basic", Title: "About", Path: "/about/"}
	child     = &content.Record{ID: 10, ParentID: 2, Template: "product", Title: "Shoe", Path: "/data/products/shoe/"}
)

// Contract: a child of a container is hidden in the tree and the decision is final.
func Test_Listable_Hides_Child_Of_Container_When_In_Tree_Context(t *testing.T) {
	t.Parallel()

	res, err := adapter(containerSettings()).Listable(t.Context(), content.Listable{
		Record: child, Parent: container, Context: content.ContextTree, Visible: true,
	})
	if err != nil {
		t.Fatalf("listable: %v", err)
	}

	if res.Value.Visible || !res.Final {
		t.Fatalf("result = %+v, want hidden and final", res)
	}
}

// Contract: the same child stays visible outside the navigation tree.
func Test_Listable_Keeps_Child_When_Context_Is_Not_Tree(t *testing.T) {
	t.Parallel()

	for _, lc := range []content.ListContext{content.ContextSearch, content.ContextPicker} {
		res, err := adapter(containerSettings()).Listable(t.Context(), content.Listable{
			Record: child, Parent: container, Context: lc, Visible: true,
		})
		if err != nil {
			t.Fatalf("listable: %v", err)
		}

		if !res.Value.Visible || res.Final {
			t.Fatalf("%s: result = %+v, want visible and not final", lc, res)
		}
	}
}

func Test_Listable_Keeps_Child_When_Parent_Not_Container_Or_Feature_Off(t *testing.T) {
	t.Parallel()

	res, _ := adapter(containerSettings()).Listable(t.Context(), content.Listable{
		Record: child, Parent: plainPage, Context: content.ContextTree, Visible: true,
	})
	if !res.Value.Visible {
		t.Fatal("child of a plain page must stay visible")
	}

	res, _ = adapter(containerSettings()).Listable(t.Context(), content.Listable{
		Record: container, Parent: nil, Context: content.ContextTree, Visible: true,
	})
	if !res.Value.Visible {
		t.Fatal("root record must stay visible")
	}

	off := containerSettings()
	off.HideChildrenInTree = false

	res, _ = adapter(off).Listable(t.Context(), content.Listable{
		Record: child, Parent: container, Context: content.ContextTree, Visible: true,
	})
	if !res.Value.Visible {
		t.Fatal("child must stay visible when hiding is switched off")
	}
}

func Test_Actions_Relabels_Edit_When_Record_Is_Container(t *testing.T) {
	t.Parallel()

	in := []content.Action{
		{Name: "view", Label: "View", URL: "/data/products/"},
		{Name: "edit", Label: "Edit", Icon: "pencil", URL: "/page/edit/?id=2"},
		{Name: "new", Label: "New", URL: "/page/add/?parent_id=2"},
	}

	res, err := adapter(containerSettings()).Actions(t.Context(), content.Actions{Record: container, Actions: in})
	if err != nil {
		t.Fatalf("actions: %v", err)
	}

	want := []content.Action{
		{Name: "view", Label: "View", URL: "/data/products/"},
		{Name: "edit", Label: "Table", Icon: "table", URL: "/page/edit/?id=2"},
		{Name: "new", Label: "New", URL: "/page/add/?parent_id=2"},
	}

	if diff := cmp.Diff(want, res.Value.Actions); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}

	if in[1].Label != "Edit" {
		t.Fatal("input slice must not be modified")
	}
}

func Test_Actions_NoOp_When_Not_Container_Or_No_Edit(t *testing.T) {
	t.Parallel()

	in := []content.Action{{Name: "edit", Label: "Edit"}}

	res, _ := adapter(containerSettings()).Actions(t.Context(), content.Actions{Record: plainPage, Actions: in})
	if res.Value.Actions[0].Label != "Edit" {
		t.Fatal("plain page edit action must keep its label")
	}

	noEdit := []content.Action{{Name: "view", Label: "View"}}

	res, _ = adapter(containerSettings()).Actions(t.Context(), content.Actions{Record: container, Actions: noEdit})
	if diff := cmp.Diff(noEdit, res.Value.Actions); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}

	off := containerSettings()
	off.RenameEditToTable = false

	res, _ = adapter(off).Actions(t.Context(), content.Actions{Record: container, Actions: in})
	if res.Value.Actions[0].Label != "Edit" {
		t.Fatal("relabel must respect the switch")
	}
}

var errSettings = errors.New("settings unavailable")

func Test_Handlers_Propagate_Settings_Errors(t *testing.T) {
	t.Parallel()

	a := tree.New(func(context.Context) (settings.Settings, error) { return settings.Settings{}, errSettings })

	_, err := a.Listable(t.Context(), content.Listable{Record: child, Parent: container, Context: content.ContextTree, Visible: true})
	if !errors.Is(err, errSettings) {
		t.Fatalf("listable err = %v", err)
	}

	_, err = a.Actions(t.Context(), content.Actions{Record: container})
	if !errors.Is(err, errSettings) {
		t.Fatalf("actions err = %v", err)
	}
}

func Test_Register_Installs_Handlers_In_Their_Phases(t *testing.T) {
	t.Parallel()

	listable := hooks.NewPoint[content.Listable]("page.listable")
	actions := hooks.NewPoint[content.Actions]("pagelist.actions")

	err := adapter(containerSettings()).Register(listable, actions)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if diff := cmp.Diff([]hooks.Registration{{Name: "tree.listable", Phase: hooks.Before}}, listable.Registrations()); diff != "" {
		t.Fatalf("listable registrations (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]hooks.Registration{{Name: "tree.actions", Phase: hooks.After}}, actions.Registrations()); diff != "" {
		t.Fatalf("actions registrations (-want +got):\n%s", diff)
	}

	// A host default that would show the record again never runs.
	got, err := listable.Run(t.Context(), content.Listable{
		Record: child, Parent: container, Context: content.ContextTree, Visible: true,
	}, func(_ context.Context, in content.Listable) (content.Listable, error) {
		in.Visible = true
		return in, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got.Visible {
		t.Fatal("final decision must stop the chain")
	}
}
