package docs

import "testing"

func TestPagesInOrder(t *testing.T) {
	want := []string{"getting-started", "cloning", "branching", "committing", "syncing", "pull-requests", "resolving-conflicts", "releasing"}
	got := All()
	if len(got) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(got))
	}
	for i, slug := range want {
		if got[i].Slug != slug {
			t.Fatalf("page %d: %s, want %s", i, got[i].Slug, slug)
		}
		if got[i].Title == "" || len(got[i].Sections) == 0 {
			t.Fatalf("page %s is empty", slug)
		}
	}
}

func TestLookupLinksNeighbours(t *testing.T) {
	first, ok := Lookup("getting-started")
	if !ok || first.Prev != nil || first.Next == nil || first.Next.Slug != "cloning" {
		t.Fatalf("first: %+v", first)
	}

	middle, ok := Lookup("syncing")
	if !ok || middle.Prev.Slug != "committing" || middle.Next.Slug != "pull-requests" {
		t.Fatalf("middle: prev=%v next=%v", middle.Prev, middle.Next)
	}

	last, ok := Lookup("releasing")
	if !ok || last.Next != nil {
		t.Fatalf("last: %+v", last)
	}

	if _, ok := Lookup("rebasing"); ok {
		t.Fatal("unknown slug found")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	got := All()
	got[0].Title = "changed"
	if All()[0].Title == "changed" {
		t.Fatal("All exposed internal slice")
	}
}
