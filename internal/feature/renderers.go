package feature

import (
	"strconv"
	"strings"
)

// Compact limits: how many records a compact block shows before "+N more".
const (
	JobLimit        = 3
	SchemeLimit     = 3
	SuggestionLimit = 2
	CourseLimit     = 3
	TutorialLimit   = 3
	EventLimit      = 3
	ProjectLimit    = 3
	YoutubeLimit    = 2
)

// Per-card caps on nested lists.
const (
	jobTagCap         = 6
	jobSkillCap       = 5
	courseTagCap      = 4
	projectTagCap     = 3
	keyPointCap       = 3
	resourceCap       = 3
	profileSkillCap   = 4
	profileAchieveCap = 2
)

func RenderJobs(jobs []Job, compact bool) *Block {
	shown, more := visible(len(jobs), compact, JobLimit)
	b := newBlock("jobs", "blocks.jobs", shown)
	b.More = more
	for _, j := range jobs[:shown] {
		c := Card{Title: string(firstText(j.JobTitle, j.Title))}
		if score, err := strconv.ParseFloat(string(j.RelevanceScore), 64); err == nil && score > 0 {
			c.badge("★ " + j.RelevanceScore)
		}
		c.badge(j.JobType)
		c.badge(j.JobStatus)
		switch strings.ToLower(string(j.IsActive)) {
		case "true", "1":
			c.badge("Active")
		case "false", "0":
			c.badge("Inactive")
		}
		c.field("Company", firstText(j.CompanyName, j.Company))
		c.field("Location", j.Location)
		c.field("Sector", j.Sector)
		c.field("Posted", j.PostedDate)
		c.field("Deadline", j.ApplicationDeadline)
		c.field("Created", j.CreatedAt)
		c.field("Salary", firstText(j.SalaryRange, j.Pay))
		c.field("In-hand", j.InHandSalary)
		c.field("Industry", j.Industry)
		c.field("Employment", j.EmploymentType)
		if j.ExperienceRequired != "" {
			c.field("Experience", j.ExperienceRequired+" months exp")
		}
		c.tags(j.Tags, jobTagCap)
		if len(j.SkillsRequired) > 0 {
			c.field("Skills", Text(strings.Join(capList(j.SkillsRequired, jobSkillCap), ", ")))
		}
		c.Body = string(j.Description)
		if j.ApplyURL != "" {
			c.link("Apply Now", j.ApplyURL)
		} else {
			c.field("Contact", j.CompanyContact)
		}
		if j.Source != "" {
			c.Footer = "via " + string(j.Source)
		}
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderSchemes(schemes []Scheme, compact bool) *Block {
	shown, more := visible(len(schemes), compact, SchemeLimit)
	b := newBlock("schemes", "blocks.schemes", shown)
	b.More = more
	for _, s := range schemes[:shown] {
		c := Card{Title: string(s.Name), Body: string(s.Description)}
		c.field("Benefits", s.Benefits)
		c.field("Eligibility", s.Eligibility)
		c.field("How to apply", s.ApplicationProcess)
		c.link("Learn More", s.Website)
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderSuggestions(suggestions []BusinessSuggestion, compact bool) *Block {
	shown, more := visible(len(suggestions), compact, SuggestionLimit)
	b := newBlock("suggestions", "blocks.suggestions", shown)
	b.More = more
	for _, s := range suggestions[:shown] {
		c := Card{Title: string(s.IdeaName), Body: string(s.WhyItSuits)}
		c.badge(s.BusinessType)
		c.field("Estimated cost", s.TotalEstimatedCost)
		if len(s.RequiredResources) > 0 {
			res := strings.Join(capList(s.RequiredResources, resourceCap), ", ")
			if len(s.RequiredResources) > resourceCap {
				res += "..."
			}
			c.field("Resources", Text(res))
		}
		c.field("Difficulty", s.DifficultyLevel)
		c.field("Profit potential", s.ProfitPotential)
		if len(s.InitialSteps) > 0 {
			c.Bullets = append([]string(nil), s.InitialSteps...)
		}
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderCourses(courses []Course, compact bool) *Block {
	shown, more := visible(len(courses), compact, CourseLimit)
	b := newBlock("courses", "blocks.courses", shown)
	b.More = more
	for _, co := range courses[:shown] {
		c := Card{Title: string(co.Name), Body: string(co.Description)}
		c.badge(co.SkillLevel)
		c.field("Provider", co.Provider)
		c.field("Duration", co.Duration)
		c.field("Category", co.Category)
		c.tags(co.Tags, courseTagCap)
		c.link("View Course", co.Link)
		if co.Source != "" {
			c.Footer = "via " + string(co.Source)
		}
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderTutorials(tutorials []Tutorial, compact bool) *Block {
	shown, more := visible(len(tutorials), compact, TutorialLimit)
	b := newBlock("tutorials", "blocks.tutorials", shown)
	b.More = more
	for i, t := range tutorials[:shown] {
		title := string(t.Title)
		if title == "" {
			title = "Tutorial " + strconv.Itoa(i+1)
		}
		c := Card{Title: title, Body: string(firstText(t.Description, t.Content))}
		c.link("Watch Tutorial", t.URL)
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderEvents(events []Event, compact bool) *Block {
	shown, more := visible(len(events), compact, EventLimit)
	b := newBlock("events", "blocks.events", shown)
	b.More = more
	for _, e := range events[:shown] {
		c := Card{Title: string(e.Title), Body: string(e.Description)}
		c.badge(e.Type)
		c.field("Date", e.Date)
		c.field("Location", e.Location)
		c.field("Organizer", e.Organizer)
		c.link("Register", e.RegistrationLink)
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderProjects(projects []Project, compact bool) *Block {
	shown, more := visible(len(projects), compact, ProjectLimit)
	b := newBlock("projects", "blocks.projects", shown)
	b.More = more
	for _, p := range projects[:shown] {
		c := Card{Title: string(p.Title), Body: string(p.Description)}
		c.badge(p.Status)
		c.field("Creator", p.Creator)
		c.field("Investment", p.InvestmentNeeded)
		if len(p.Tags) > 0 {
			c.Tags = capList(p.Tags, projectTagCap)
		}
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderYoutubeSummaries(summaries []YoutubeSummary, compact bool) *Block {
	shown, more := visible(len(summaries), compact, YoutubeLimit)
	b := newBlock("youtube", "blocks.youtube", shown)
	b.More = more
	for _, s := range summaries[:shown] {
		c := Card{Title: string(s.Title), Body: string(s.Summary)}
		c.field("Duration", s.Duration)
		if len(s.KeyPoints) > 0 {
			c.Bullets = capList(s.KeyPoints, keyPointCap)
		}
		c.link("Watch Video", s.URL)
		b.Cards = append(b.Cards, c)
	}
	return b
}

func RenderProfile(p Profile, compact bool) *Block {
	b := newBlock("profile", "blocks.profile", 1)
	c := Card{Title: string(p.Name)}
	c.field("Experience", p.Experience)
	c.field("Goals", p.Goals)
	if compact {
		c.tags(p.Skills, profileSkillCap)
	} else {
		c.tags(p.Skills, 0)
	}
	if len(p.Achievements) > 0 {
		if compact {
			c.Bullets = capList(p.Achievements, profileAchieveCap)
		} else {
			c.Bullets = append([]string(nil), p.Achievements...)
		}
	}
	b.Cards = append(b.Cards, c)
	return b
}

func RenderCompanies(companies []Company) *Block {
	b := newBlock("companies", "blocks.companies", len(companies))
	for _, co := range companies {
		b.Cards = append(b.Cards, Card{Title: string(co.Name)})
	}
	return b
}

func RenderProductLinks(links []ProductLink) *Block {
	b := newBlock("products", "blocks.products", len(links))
	for _, l := range links {
		c := Card{Title: string(l.ProductTerm)}
		c.link("View on GeM", l.ProductSearchURL)
		b.Cards = append(b.Cards, c)
	}
	return b
}

func firstText(vals ...Text) Text {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func capList(list []string, limit int) []string {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...)
}
