// ABOUTME: Built-in sample catalog of ten well-known books.
// ABOUTME: Used when no catalog file is configured.
package catalog

import "github.com/2389-research/bookrec/internal/models"

// Builtin returns the sample catalog.
func Builtin() []models.Book {
	return []models.Book{
		{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Genre: "Fiction",
			Description: "A classic American novel about the Jazz Age and the American Dream.", Rating: 4.5, Year: 1925},
		{ID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Genre: "Fiction",
			Description: "A story of racial injustice and childhood innocence in the American South.", Rating: 4.8, Year: 1960},
		{ID: 3, Title: "1984", Author: "George Orwell", Genre: "Dystopian Fiction",
			Description: "A dystopian social science fiction novel about totalitarian control.", Rating: 4.7, Year: 1949},
		{ID: 4, Title: "Pride and Prejudice", Author: "Jane Austen", Genre: "Romance",
			Description: "A romantic novel about Elizabeth Bennet and Mr. Darcy.", Rating: 4.6, Year: 1813},
		{ID: 5, Title: "The Catcher in the Rye", Author: "J.D. Salinger", Genre: "Fiction",
			Description: "A coming-of-age story about teenage rebellion and alienation.", Rating: 4.2, Year: 1951},
		{ID: 6, Title: "Lord of the Flies", Author: "William Golding", Genre: "Fiction",
			Description: "A story about British boys stranded on an uninhabited island.", Rating: 4.3, Year: 1954},
		{ID: 7, Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: "Fantasy",
			Description: "A fantasy novel about Bilbo Baggins and his adventure.", Rating: 4.7, Year: 1937},
		{ID: 8, Title: "Harry Potter and the Sorcerer's Stone", Author: "J.K. Rowling", Genre: "Fantasy",
			Description: "The first book in the Harry Potter series about a young wizard.", Rating: 4.8, Year: 1997},
		{ID: 9, Title: "The Chronicles of Narnia", Author: "C.S. Lewis", Genre: "Fantasy",
			Description: "A series of fantasy novels about the magical world of Narnia.", Rating: 4.6, Year: 1950},
		{ID: 10, Title: "The Da Vinci Code", Author: "Dan Brown", Genre: "Mystery",
			Description: "A mystery thriller about symbologist Robert Langdon.", Rating: 4.1, Year: 2003},
	}
}
