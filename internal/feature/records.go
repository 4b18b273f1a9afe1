package feature

// Record shapes read from structured_data. Every field is optional on the wire.

type Job struct {
	ID                  Text     `json:"id"`
	Title               Text     `json:"title"`
	JobTitle            Text     `json:"job_title"`
	Description         Text     `json:"description"`
	Company             Text     `json:"company"`
	CompanyName         Text     `json:"company_name"`
	Location            Text     `json:"location"`
	CompanyContact      Text     `json:"company_contact"`
	Pay                 Text     `json:"pay"`
	SalaryRange         Text     `json:"salary_range"`
	InHandSalary        Text     `json:"in_hand_salary"`
	JobType             Text     `json:"job_type"`
	JobStatus           Text     `json:"job_status"`
	IsActive            Text     `json:"is_active"`
	ExperienceRequired  Text     `json:"experience_required"`
	SkillsRequired      TextList `json:"skills_required"`
	Industry            Text     `json:"industry"`
	Sector              Text     `json:"sector"`
	PostedDate          Text     `json:"posted_date"`
	ApplicationDeadline Text     `json:"application_deadline"`
	CreatedAt           Text     `json:"created_at"`
	EmploymentType      Text     `json:"employment_type"`
	ApplyURL            Text     `json:"apply_url"`
	Source              Text     `json:"source"`
	Tags                TextList `json:"tags"`
	RelevanceScore      Text     `json:"relevance_score"`
	DebugInfo           Text     `json:"debug_info"`
}

type Scheme struct {
	ID                 Text `json:"id"`
	Name               Text `json:"name"`
	Description        Text `json:"description"`
	Eligibility        Text `json:"eligibility"`
	Benefits           Text `json:"benefits"`
	ApplicationProcess Text `json:"application_process"`
	Website            Text `json:"website"`
}

type BusinessSuggestion struct {
	IdeaName           Text     `json:"idea_name"`
	BusinessType       Text     `json:"business_type"`
	RequiredResources  TextList `json:"required_resources"`
	InitialSteps       TextList `json:"initial_steps"`
	WhyItSuits         Text     `json:"why_it_suits"`
	TotalEstimatedCost Text     `json:"total_estimated_cost"`
	DifficultyLevel    Text     `json:"difficulty_level"`
	ProfitPotential    Text     `json:"profit_potential"`
}

type Course struct {
	ID          Text     `json:"id"`
	Name        Text     `json:"name"`
	Link        Text     `json:"link"`
	Category    Text     `json:"category"`
	SkillLevel  Text     `json:"skill_level"`
	Duration    Text     `json:"duration"`
	Provider    Text     `json:"provider"`
	Description Text     `json:"description"`
	Tags        TextList `json:"tags"`
	Source      Text     `json:"source"`
}

type Tutorial struct {
	Title       Text `json:"title"`
	Description Text `json:"description"`
	Content     Text `json:"content"`
	URL         Text `json:"url"`
}

type Event struct {
	ID               Text `json:"id"`
	Title            Text `json:"title"`
	Description      Text `json:"description"`
	Date             Text `json:"date"`
	Location         Text `json:"location"`
	Type             Text `json:"type"`
	Organizer        Text `json:"organizer"`
	RegistrationLink Text `json:"registration_link"`
}

type Project struct {
	ID               Text     `json:"id"`
	Title            Text     `json:"title"`
	Description      Text     `json:"description"`
	Creator          Text     `json:"creator"`
	Status           Text     `json:"status"`
	InvestmentNeeded Text     `json:"investment_needed"`
	Tags             TextList `json:"tags"`
}

type YoutubeSummary struct {
	Title     Text     `json:"title"`
	Summary   Text     `json:"summary"`
	KeyPoints TextList `json:"key_points"`
	Duration  Text     `json:"duration"`
	URL       Text     `json:"url"`
}

type Profile struct {
	Name         Text     `json:"name"`
	Skills       TextList `json:"skills"`
	Experience   Text     `json:"experience"`
	Goals        Text     `json:"goals"`
	Achievements TextList `json:"achievements"`
}

type Company struct {
	ID   Text `json:"id"`
	Name Text `json:"name"`
}

type ProductLink struct {
	ProductTerm      Text `json:"product_term"`
	ProductSearchURL Text `json:"product_search_url"`
}
