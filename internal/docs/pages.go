// Package docs holds the Git workflow guide shown to onboarding staff.
package docs

// Section is one heading of a page. Commands render as a copyable shell block.
type Section struct {
	Heading    string
	Paragraphs []string
	Commands   []string
}

type Page struct {
	Slug     string
	Title    string
	Summary  string
	Sections []Section
}

// Nav is a page with its neighbours in reading order.
type Nav struct {
	Page
	Prev *Page
	Next *Page
}

var pages = []Page{
	{
		Slug:    "getting-started",
		Title:   "Getting started",
		Summary: "Install Git and tell it who you are.",
		Sections: []Section{
			{
				Heading: "Install Git",
				Paragraphs: []string{
					"Every change to the booking site goes through Git. Install it from git-scm.com or your package manager, then check the version.",
				},
				Commands: []string{"git --version"},
			},
			{
				Heading: "Set your identity",
				Paragraphs: []string{
					"Commits carry your name and work email. Use the same email as your dashboard account so reviewers can find you.",
				},
				Commands: []string{
					`git config --global user.name "Your Name"`,
					`git config --global user.email "you@staycationhaven.ph"`,
				},
			},
		},
	},
	{
		Slug:    "cloning",
		Title:   "Cloning the repository",
		Summary: "Get your own working copy.",
		Sections: []Section{
			{
				Heading: "Clone",
				Paragraphs: []string{
					"Ask an admin for repository access first. Then clone into your projects folder.",
				},
				Commands: []string{
					"git clone git@github.com:codr1/StaycationHaven.git",
					"cd StaycationHaven",
				},
			},
			{
				Heading: "Look around",
				Paragraphs: []string{
					"main is always deployable. Never commit to it directly.",
				},
				Commands: []string{"git status", "git log --oneline -10"},
			},
		},
	},
	{
		Slug:    "branching",
		Title:   "Branching",
		Summary: "One branch per task, named after the task.",
		Sections: []Section{
			{
				Heading: "Start from fresh main",
				Commands: []string{
					"git switch main",
					"git pull --ff-only",
					"git switch -c fix/booking-export-dates",
				},
			},
			{
				Heading: "Naming",
				Paragraphs: []string{
					"Prefix with feat/, fix/ or docs/ and describe the change in a few words. Keep branches short-lived; merge within a few days.",
				},
			},
		},
	},
	{
		Slug:    "committing",
		Title:   "Committing",
		Summary: "Small commits with messages that say what changed.",
		Sections: []Section{
			{
				Heading: "Stage and commit",
				Paragraphs: []string{
					"Review exactly what you are about to commit. Stage files by name rather than everything at once.",
				},
				Commands: []string{
					"git diff",
					"git add internal/api/bookings/export.go",
					`git commit -m "Include payments sheet in bookings export"`,
				},
			},
			{
				Heading: "Messages",
				Paragraphs: []string{
					"Write the subject in the imperative, under 72 characters. Add a body when the reason is not obvious from the diff.",
				},
			},
		},
	},
	{
		Slug:    "syncing",
		Title:   "Keeping up to date",
		Summary: "Rebase your branch on main before you open a pull request.",
		Sections: []Section{
			{
				Heading: "Rebase on main",
				Commands: []string{
					"git fetch origin",
					"git rebase origin/main",
				},
			},
			{
				Heading: "Push",
				Paragraphs: []string{
					"The first push sets the upstream. After a rebase you must force push, and only with lease.",
				},
				Commands: []string{
					"git push -u origin HEAD",
					"git push --force-with-lease",
				},
			},
		},
	},
	{
		Slug:    "pull-requests",
		Title:   "Pull requests",
		Summary: "Every change is reviewed before it reaches main.",
		Sections: []Section{
			{
				Heading: "Open the pull request",
				Paragraphs: []string{
					"Describe what changed and how you tested it. Link the ticket. Screenshots help for dashboard changes.",
				},
			},
			{
				Heading: "Address review",
				Paragraphs: []string{
					"Push follow-up commits while the review is open. Squash when the reviewer approves.",
				},
				Commands: []string{"git commit --fixup HEAD~1", "git rebase -i --autosquash origin/main"},
			},
		},
	},
	{
		Slug:    "resolving-conflicts",
		Title:   "Resolving conflicts",
		Summary: "What to do when a rebase stops.",
		Sections: []Section{
			{
				Heading: "Find the conflicts",
				Paragraphs: []string{
					"Git marks each conflict with <<<<<<<, ======= and >>>>>>> lines. Edit the file to the version you want and delete the markers.",
				},
				Commands: []string{"git status", "git diff --name-only --diff-filter=U"},
			},
			{
				Heading: "Continue or give up",
				Commands: []string{
					"git add <file>",
					"git rebase --continue",
					"git rebase --abort",
				},
			},
		},
	},
	{
		Slug:    "releasing",
		Title:   "Releasing",
		Summary: "Tags on main are what gets deployed.",
		Sections: []Section{
			{
				Heading: "Tag a release",
				Paragraphs: []string{
					"Only admins tag releases. Use the date and a counter so tags sort naturally.",
				},
				Commands: []string{
					"git switch main",
					"git pull --ff-only",
					`git tag -a v2026.03.1 -m "March release"`,
					"git push origin v2026.03.1",
				},
			},
			{
				Heading: "Roll back",
				Paragraphs: []string{
					"Deploy the previous tag. Never rewrite history on main.",
				},
			},
		},
	},
}

// All returns the pages in reading order.
func All() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// Lookup returns the page with slug and its neighbours.
func Lookup(slug string) (Nav, bool) {
	for i, p := range pages {
		if p.Slug != slug {
			continue
		}
		nav := Nav{Page: p}
		if i > 0 {
			prev := pages[i-1]
			nav.Prev = &prev
		}
		if i < len(pages)-1 {
			next := pages[i+1]
			nav.Next = &next
		}
		return nav, true
	}
	return Nav{}, false
}
