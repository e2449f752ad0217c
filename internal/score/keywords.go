package score

import (
	"strings"
	"unicode"
)

// techPhrases are multi-word terms matched by substring before tokenization,
// so the split does not destroy them.
var techPhrases = []string{
	"machine learning",
	"deep learning",
	"data engineering",
	"data science",
	"distributed systems",
	"event sourcing",
	"message queue",
	"site reliability",
	"continuous integration",
	"continuous delivery",
	"infrastructure as code",
	"micro services",
	"google cloud",
	"react native",
	"ruby on rails",
	"spring boot",
	"node js",
	"rest api",
	"unit testing",
	"computer vision",
	"natural language processing",
}

// techTerms is the single-token taxonomy: languages, frameworks, platforms,
// datastores, tooling, and domain concepts.
var techTerms = []string{
	// languages
	"go", "golang", "python", "java", "kotlin", "swift", "rust", "ruby",
	"php", "scala", "elixir", "erlang", "typescript", "javascript", "c++",
	"c#", "sql", "bash", "perl", "haskell", "clojure", "dart", "lua",
	// frameworks and runtimes
	"django", "flask", "fastapi", "rails", "laravel", "spring", "react",
	"vue", "angular", "svelte", "nextjs", "nuxt", "express", "nestjs",
	"node", "dotnet", "gin", "fiber", "flutter", "electron",
	// cloud and platform
	"aws", "azure", "gcp", "kubernetes", "docker", "terraform", "ansible",
	"helm", "nomad", "serverless", "lambda", "cloudflare", "heroku",
	"openstack", "linux", "nginx",
	// datastores and messaging
	"postgresql", "postgres", "mysql", "sqlite", "mongodb", "redis",
	"kafka", "rabbitmq", "elasticsearch", "cassandra", "dynamodb",
	"clickhouse", "snowflake", "bigquery", "memcached", "etcd", "neo4j",
	// tooling
	"git", "jenkins", "grafana", "prometheus", "datadog", "sentry",
	"graphql", "grpc", "protobuf", "oauth", "webpack", "vite", "jest",
	"cypress", "selenium", "airflow", "spark", "hadoop", "dbt",
	// domain concepts
	"backend", "frontend", "fullstack", "microservices", "devops", "api",
	"etl", "observability", "scalability", "concurrency", "caching",
	"security", "encryption", "networking", "embedded", "firmware", "css",
	"html", "accessibility", "testing", "agile",
}

// stopWords are dropped during tokenization; they carry no signal and only
// inflate the important set.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"that": {}, "the": {}, "their": {}, "this": {}, "to": {}, "we": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "using": {}, "team": {},
	"work": {}, "working": {}, "experience": {}, "years": {}, "strong": {},
}

var techTermSet map[string]struct{}

func init() {
	techTermSet = make(map[string]struct{}, len(techTerms))
	for _, t := range techTerms {
		techTermSet[t] = struct{}{}
	}
}

// ExtractKeywords returns the de-duplicated taxonomy terms found in the text,
// in first-occurrence order. Phrases are checked as substrings first, then
// single tokens after splitting on whitespace and punctuation.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}
	seen := make(map[string]struct{}, 16)
	out := make([]string, 0, 16)
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	for _, phrase := range techPhrases {
		if strings.Contains(lower, phrase) {
			add(phrase)
		}
	}
	for _, tok := range tokenize(lower) {
		if _, ok := techTermSet[tok]; ok {
			add(tok)
		}
	}
	return out
}

// tokenize splits on anything that is not a letter, digit, '+' or '#'
// (keeping c++ and c# intact), drops stop words and tokens shorter than two
// characters.
func tokenize(lower string) []string {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// keywordScore compares the listing's keywords against the important set (the
// union of resume keywords and explicit preferred-stack terms). Preferred
// stack matches count 1.5x toward the numerator. Result is clamped to [0, 1];
// an empty important set scores 0.
//
// The returned matched and missing slices feed explanation generation.
func keywordScore(listingKeywords []string, resume string, preferredStacks []string) (score float64, matched, missing []string) {
	important := make(map[string]struct{}, 16)
	order := make([]string, 0, 16)
	for _, k := range ExtractKeywords(resume) {
		if _, ok := important[k]; !ok {
			important[k] = struct{}{}
			order = append(order, k)
		}
	}
	prefSet := make(map[string]struct{}, len(preferredStacks))
	for _, p := range preferredStacks {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		prefSet[p] = struct{}{}
		if _, ok := important[p]; !ok {
			important[p] = struct{}{}
			order = append(order, p)
		}
	}
	if len(important) == 0 {
		return 0, nil, nil
	}

	listingSet := make(map[string]struct{}, len(listingKeywords))
	for _, k := range listingKeywords {
		listingSet[k] = struct{}{}
	}
	effective := 0.0
	for _, k := range order {
		if _, ok := listingSet[k]; ok {
			matched = append(matched, k)
			effective += 1.0
			if _, pref := prefSet[k]; pref {
				effective += 0.5
			}
		} else {
			missing = append(missing, k)
		}
	}
	score = effective / float64(len(important))
	if score > 1 {
		score = 1
	}
	return score, matched, missing
}
