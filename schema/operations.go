package schema

// Kind distinguishes reads from writes.
type Kind int

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Operation is a named GraphQL document. Field is the root field of the
// response data that carries the result.
type Operation struct {
	Name     string
	Kind     Kind
	Field    string
	Document string
}

const taskFields = `
fragment TaskFields on Task {
  id
  title
  note
  category_id
  due_date
  completed
  completed_at
  created_at
  updated_at
  sub_tasks {
    ...SubTaskFields
  }
}`

const subTaskFields = `
fragment SubTaskFields on SubTask {
  id
  task_id
  title
  note
  due_date
  completed
  completed_at
  created_at
  updated_at
}`

var (
	ListTasks = Operation{
		Name:  "ListTasks",
		Kind:  Query,
		Field: "tasks",
		Document: `query ListTasks($category_id: ID, $due_date_start: String, $due_date_end: String, $incomplete_only: Boolean) {
  tasks(category_id: $category_id, due_date_start: $due_date_start, due_date_end: $due_date_end, incomplete_only: $incomplete_only) {
    ...TaskFields
  }
}` + taskFields + subTaskFields,
	}

	ListCategories = Operation{
		Name:  "ListCategories",
		Kind:  Query,
		Field: "categories",
		Document: `query ListCategories {
  categories {
    id
    name
  }
}`,
	}

	CreateTask = Operation{
		Name:  "CreateTask",
		Kind:  Mutation,
		Field: "createTask",
		Document: `mutation CreateTask($input: NewTask!) {
  createTask(input: $input) {
    ...TaskFields
  }
}` + taskFields + subTaskFields,
	}

	UpdateTask = Operation{
		Name:  "UpdateTask",
		Kind:  Mutation,
		Field: "updateTask",
		Document: `mutation UpdateTask($input: UpdateTask!) {
  updateTask(input: $input) {
    ...TaskFields
  }
}` + taskFields + subTaskFields,
	}

	DeleteTask = Operation{
		Name:  "DeleteTask",
		Kind:  Mutation,
		Field: "deleteTask",
		Document: `mutation DeleteTask($id: ID!) {
  deleteTask(id: $id)
}`,
	}

	CreateSubTask = Operation{
		Name:  "CreateSubTask",
		Kind:  Mutation,
		Field: "createSubTask",
		Document: `mutation CreateSubTask($input: NewSubTask!) {
  createSubTask(input: $input) {
    ...SubTaskFields
  }
}` + subTaskFields,
	}

	// ToggleSubTask returns a partial sub-task: id, completed, completed_at
	// and updated_at.
	ToggleSubTask = Operation{
		Name:  "ToggleSubTask",
		Kind:  Mutation,
		Field: "toggleSubTask",
		Document: `mutation ToggleSubTask($id: ID!, $completed: Int!) {
  toggleSubTask(id: $id, completed: $completed) {
    id
    completed
    completed_at
    updated_at
  }
}`,
	}

	Login = Operation{
		Name:  "Login",
		Kind:  Mutation,
		Field: "login",
		Document: `mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password)
}`,
	}

	Logout = Operation{
		Name:  "Logout",
		Kind:  Mutation,
		Field: "logout",
		Document: `mutation Logout {
  logout
}`,
	}
)

// Operations lists the whole surface of the endpoint.
var Operations = []Operation{
	ListTasks,
	ListCategories,
	CreateTask,
	UpdateTask,
	DeleteTask,
	CreateSubTask,
	ToggleSubTask,
	Login,
	Logout,
}

// Lookup finds an operation by name.
func Lookup(name string) (Operation, bool) {
	for _, op := range Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}
