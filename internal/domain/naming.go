package domain

import "strings"

// SuperuserRole is the built-in search engine role granted to global administrators.
const SuperuserRole = "superuser"

// RepositoryRoleName names the role granting access to a repository, e.g.
// "repository.logs-*.events.readonly".
func RepositoryRoleName(pattern, repoType string, access Access) string {
	return "repository." + pattern + "." + repoType + "." + string(access)
}

// AliasRoleName names the read-only role granting access to an alias.
func AliasRoleName(pattern string) string {
	return "alias." + pattern + ".readonly"
}

// SpaceRoleName names the dashboard role granting access to a space.
func SpaceRoleName(spaceID, spaceType string, access Access) string {
	return "space." + spaceID + "." + spaceType + "." + string(access)
}

// RepositoryTemplateName names the index template owned by a repository.
func RepositoryTemplateName(prefix, pattern string) string {
	return prefix + "repository." + templateSafe(pattern)
}

// AliasTemplateName names the template carrying the aliases of a repository.
func AliasTemplateName(prefix, pattern string) string {
	return prefix + "aliases." + templateSafe(pattern)
}

// templateSafe lowercases the pattern and replaces characters rejected in
// template names.
func templateSafe(pattern string) string {
	r := strings.NewReplacer("*", "_", " ", "_", ",", "_", "\"", "_", "\\", "_", "/", "_", "?", "_", "<", "_", ">", "_", "|", "_", "#", "_")
	return r.Replace(strings.ToLower(pattern))
}
