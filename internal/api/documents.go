package api

// Fragments shared by the operation documents. Field selections mirror what
// the cache normalizes: every entity is selected with its id.
const (
	commentFields = `
fragment TaskCommentFields on TaskCommentType {
  id
  content
  authorName
  authorEmail
  createdAt
  updatedAt
}`

	taskFields = `
fragment TaskFields on TaskType {
  id
  title
  description
  status
  priority
  dueDate
  order
  createdAt
  updatedAt
}`

	projectFields = `
fragment ProjectFields on ProjectType {
  id
  name
  description
  status
  dueDate
  createdAt
  updatedAt
}`

	statisticsFields = `
fragment ProjectStatisticsFields on ProjectStatisticsType {
  totalTasks
  completedTasks
  pendingTasks
  completionPercentage
}`

	userFields = `
fragment UserFields on UserType {
  id
  username
  firstName
  lastName
}`
)

// Operation names, sent as operationName and used as cache key prefixes
const (
	OpLogin              = "Login"
	OpLogout             = "Logout"
	OpMe                 = "Me"
	OpGetOrganizations   = "GetOrganizations"
	OpCreateOrganization = "CreateOrganization"
	OpJoinOrganization   = "JoinOrganization"
	OpInviteToOrg        = "InviteToOrganization"
	OpGetProjects        = "GetProjects"
	OpGetProject         = "GetProject"
	OpCreateProject      = "CreateProject"
	OpUpdateProject      = "UpdateProject"
	OpCreateTask         = "CreateTask"
	OpUpdateTask         = "UpdateTask"
	OpAddTaskComment     = "AddTaskComment"
)

const loginDoc = `mutation Login($username: String!, $password: String!) {
  login(username: $username, password: $password) {
    success
    sessionKey
    error
    user { ...UserFields }
  }
}` + userFields

const logoutDoc = `mutation Logout {
  logout { success }
}`

const meDoc = `query Me {
  me { ...UserFields }
}` + userFields

const organizationsDoc = `query GetOrganizations {
  organizations { id name slug description isActive createdAt }
}`

const createOrganizationDoc = `mutation CreateOrganization($name: String!, $description: String) {
  createOrganization(name: $name, description: $description) {
    success
    error
    organization { id name slug description isActive createdAt }
  }
}`

const joinOrganizationDoc = `mutation JoinOrganization($inviteCode: String!) {
  joinOrganization(inviteCode: $inviteCode) {
    success
    error
    organization { id name slug }
  }
}`

const inviteDoc = `mutation InviteToOrganization($organizationId: UUID!, $email: String!) {
  inviteToOrganization(organizationId: $organizationId, email: $email) {
    success
    error
    inviteCode
  }
}`

const projectsDoc = `query GetProjects($organizationId: UUID!) {
  projects(organizationId: $organizationId) {
    ...ProjectFields
    statistics { ...ProjectStatisticsFields }
  }
}` + projectFields + statisticsFields

const projectDoc = `query GetProject($id: UUID!, $organizationId: UUID!) {
  project(id: $id, organizationId: $organizationId) {
    ...ProjectFields
    tasks {
      ...TaskFields
      comments { ...TaskCommentFields }
    }
    statistics { ...ProjectStatisticsFields }
  }
}` + projectFields + taskFields + commentFields + statisticsFields

const createProjectDoc = `mutation CreateProject($organizationId: UUID!, $input: ProjectInput!) {
  createProject(organizationId: $organizationId, input: $input) {
    success
    error
    project { ...ProjectFields }
  }
}` + projectFields

const updateProjectDoc = `mutation UpdateProject($id: UUID!, $organizationId: UUID!, $input: ProjectInput!) {
  updateProject(id: $id, organizationId: $organizationId, input: $input) {
    success
    error
    project { ...ProjectFields }
  }
}` + projectFields

const createTaskDoc = `mutation CreateTask($projectId: UUID!, $organizationId: UUID!, $input: TaskInput!) {
  createTask(projectId: $projectId, organizationId: $organizationId, input: $input) {
    success
    error
    task { ...TaskFields }
  }
}` + taskFields

const updateTaskDoc = `mutation UpdateTask($id: UUID!, $organizationId: UUID!, $input: TaskInput!) {
  updateTask(id: $id, organizationId: $organizationId, input: $input) {
    success
    error
    task { ...TaskFields }
  }
}` + taskFields

const addCommentDoc = `mutation AddTaskComment($taskId: UUID!, $organizationId: UUID!, $input: CommentInput!) {
  addTaskComment(taskId: $taskId, organizationId: $organizationId, input: $input) {
    success
    error
    comment { ...TaskCommentFields }
  }
}` + commentFields
